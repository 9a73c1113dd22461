package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	tableRe   = regexp.MustCompile(`^table\s+([A-Za-z_][\w.]*)\s*:$`)
	editorRe  = regexp.MustCompile(`^editor\s+([A-Za-z_][\w-]*)\s*:$`)
	columnRe  = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*([^\s#]+)(.*)$`)
	fieldRe   = regexp.MustCompile(`^field\s+([\w.]+)\s*:?(.*)$`)
	joinRe    = regexp.MustCompile(`^join\s*:\s*(.+?)\s+on\s+([\w.]+)\s*(<>|!=|<=|>=|=|<|>)\s*([\w.]+)$`)
	settingRe = regexp.MustCompile(`^([a-z_]+)\s*:\s*(.*)$`)
)

var columnTypes = map[string]bool{
	"serial": true, "int": true, "bigint": true, "float": true, "decimal": true,
	"string": true, "text": true, "bool": true, "date": true, "datetime": true,
}

// splitOptionTokens делит "k=v k2='v 2' pattern=^[A-Z0-9 _-]+$" на токены, не рвёт
// по пробелам внутри кавычек и [...].
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[':
			if !inSingle && !inDouble {
				bracketDepth++
			}
			buf = append(buf, r)
		case ']':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
			buf = append(buf, r)
		default:
			if (r == ' ' || r == '\t') && !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// stripComment срезает "# ..." вне кавычек.
func stripComment(s string) string {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == '#' && !inSingle && !inDouble:
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// parseTokens: флаг без значения -> "true"; validate= может повторяться.
func parseTokens(raw string) (map[string]string, []string) {
	opts := map[string]string{}
	var validate []string
	for _, tok := range splitOptionTokens(raw) {
		if !strings.Contains(tok, "=") {
			opts[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := unquote(strings.TrimSpace(kv[1]))
		if k == "" {
			continue
		}
		if k == "validate" {
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					validate = append(validate, p)
				}
			}
			continue
		}
		opts[k] = v
	}
	return opts, validate
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse читает один .dsl. name: для сообщений об ошибках.
func Parse(r io.Reader, name string) (*Document, error) {
	doc := NewDocument()
	var (
		table  *Table
		editor *Editor
		lineNo int
	)
	errf := func(format string, args ...any) error {
		return fmt.Errorf("%s:%d: %s", name, lineNo, fmt.Sprintf(format, args...))
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		if m := tableRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1])
			if _, dup := doc.Tables[key]; dup {
				return nil, errf("duplicate table %q", m[1])
			}
			table, editor = &Table{Name: m[1], File: name}, nil
			doc.Tables[key] = table
			continue
		}
		if m := editorRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1])
			if _, dup := doc.Editors[key]; dup {
				return nil, errf("duplicate editor %q", m[1])
			}
			editor, table = &Editor{Name: m[1], Flags: map[string]bool{}, File: name, Line: lineNo}, nil
			doc.Editors[key] = editor
			continue
		}

		switch {
		case table != nil:
			if err := parseColumn(table, line); err != nil {
				return nil, errf("%v", err)
			}
		case editor != nil:
			if err := parseEditorLine(editor, line, lineNo); err != nil {
				return nil, errf("%v", err)
			}
		default:
			return nil, errf("unexpected %q outside of table/editor block", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, e := range doc.Editors {
		if e.Table == "" {
			return nil, fmt.Errorf("%s:%d: editor %q has no table", name, e.Line, e.Name)
		}
	}
	return doc, nil
}

func parseColumn(t *Table, line string) error {
	m := columnRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("bad column line %q", line)
	}
	typ := strings.ToLower(m[2])
	if !columnTypes[typ] {
		return fmt.Errorf("column %s: unknown type %q", m[1], m[2])
	}
	c := Column{Name: m[1], Type: typ}
	opts, _ := parseTokens(strings.ReplaceAll(m[3], ",", " "))
	c.PK = opts["pk"] == "true"
	c.Required = opts["required"] == "true" || c.PK
	c.Unique = opts["unique"] == "true"
	c.Default = opts["default"]
	c.Ref = opts["ref"]
	for _, ex := range t.Columns {
		if strings.EqualFold(ex.Name, c.Name) {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
	}
	t.Columns = append(t.Columns, c)
	return nil
}

func parseEditorLine(e *Editor, line string, lineNo int) error {
	if m := fieldRe.FindStringSubmatch(line); m != nil {
		opts, validate := parseTokens(m[2])
		e.Fields = append(e.Fields, Field{DB: m[1], Options: opts, Validate: validate, Line: lineNo})
		return nil
	}
	if strings.HasPrefix(line, "join") {
		m := joinRe.FindStringSubmatch(line)
		if m == nil {
			return fmt.Errorf("bad join %q, want: join: <table> on <left> <op> <right>", line)
		}
		e.Joins = append(e.Joins, Join{Table: m[1], Left: m[2], Op: m[3], Right: m[4]})
		return nil
	}
	m := settingRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("bad editor line %q", line)
	}
	val := unquote(strings.TrimSpace(m[2]))
	switch m[1] {
	case "table":
		e.Table = val
	case "tables":
		e.Tables = append(e.Tables, splitList(val)...)
	case "pkey":
		e.PKey = splitList(val)
	case "prefix":
		e.Prefix = val
	case "flags":
		for _, f := range strings.Fields(strings.ReplaceAll(val, ",", " ")) {
			e.Flags[strings.ToLower(f)] = true
		}
	default:
		return fmt.Errorf("unknown editor setting %q", m[1])
	}
	return nil
}

// Merge переносит таблицы и редакторы из other; дубли: ошибка.
func (d *Document) Merge(other *Document) error {
	for k, t := range other.Tables {
		if prev, ok := d.Tables[k]; ok {
			return fmt.Errorf("duplicate table %q (%s and %s)", t.Name, prev.File, t.File)
		}
		d.Tables[k] = t
	}
	for k, e := range other.Editors {
		if prev, ok := d.Editors[k]; ok {
			return fmt.Errorf("duplicate editor %q (%s and %s)", e.Name, prev.File, e.File)
		}
		d.Editors[k] = e
	}
	return nil
}

func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// LoadAll читает все .dsl под root.
func LoadAll(root string) (*Document, error) {
	doc := NewDocument()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".dsl") {
			return nil
		}
		part, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return doc.Merge(part)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
