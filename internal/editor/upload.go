package editor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"crudbind/internal/store"
)

// BlobStore: куда складываются байты файла.
type BlobStore interface {
	// Put возвращает ключ, размер и sha256.
	Put(key string, r io.Reader) (string, int64, string, error)
	Delete(key string) error
}

// UploadColumns: колонки таблицы файлов; пустое имя не записывается.
type UploadColumns struct {
	Name string
	Mime string
	Size string
	Key  string
	Hash string
}

// Upload: поле принимает файлы. Байты уходят в BlobStore, метаданные строкой в Table.
type Upload struct {
	Blob       BlobStore
	Table      string
	PKey       string // default "id"
	Columns    UploadColumns
	Extensions []string // допустимые расширения без точки; пусто: любые
	MaxSize    int64    // 0: без ограничения
}

func (u *Upload) extAllowed(name string) bool {
	if len(u.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range u.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (r *request) upload(ctx context.Context) error {
	e := r.e
	up := r.req.Upload
	if up == nil || up.Reader == nil {
		r.out.Error = "No file submitted"
		return nil
	}
	f := e.Field(up.Field)
	if f == nil || f.upload == nil {
		r.out.Error = "Unknown upload field name submitted"
		return nil
	}
	u := f.upload
	if !u.extAllowed(up.Name) {
		r.out.FieldErrors = append(r.out.FieldErrors, FieldError{Name: f.dbField, Status: "This file type cannot be uploaded"})
		return nil
	}

	src := up.Reader
	if u.MaxSize > 0 {
		src = io.LimitReader(up.Reader, u.MaxSize+1)
	}
	key, size, sum, err := u.Blob.Put("", src)
	if err != nil {
		r.out.Error = fmt.Sprintf("store error: %v", err)
		return nil
	}
	if u.MaxSize > 0 && size > u.MaxSize {
		r.dropBlob(u, key)
		r.out.FieldErrors = append(r.out.FieldErrors, FieldError{Name: f.dbField, Status: "File exceeds the maximum size"})
		return nil
	}

	vals := map[string]any{}
	put := func(col string, v any) {
		if col != "" {
			vals[col] = v
		}
	}
	put(u.Columns.Name, filepath.Base(up.Name))
	put(u.Columns.Mime, up.Mime)
	put(u.Columns.Size, size)
	put(u.Columns.Key, key)
	put(u.Columns.Hash, sum)

	pk := u.PKey
	if pk == "" {
		pk = "id"
	}
	var id any
	err = e.st.Tx(ctx, func(tx store.Store) error {
		var err error
		id, err = tx.Insert(ctx, store.Insert{Table: u.Table, Values: vals, Returning: pk})
		return err
	})
	if err != nil {
		r.dropBlob(u, key)
		r.rowFailed(up.Name, err)
		return nil
	}
	r.out.Upload = &UploadResult{ID: keyString(id)}
	return nil
}

// dropBlob убирает файл, для которого не появилось строки.
func (r *request) dropBlob(u *Upload, key string) {
	if err := u.Blob.Delete(key); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("orphan blob left in storage")
	}
}
