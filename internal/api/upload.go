package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/desertthunder/oracle/internal/shared"
)

// ProgressFunc receives the fraction of the request body sent so far, from 0 to 1.
type ProgressFunc func(fraction float64)

// UploadWithProgress posts file as the multipart field "file" to path.
//
// Uploads are attempted once. Token injection and response handling match [Client.Request].
func (c *Client) UploadWithProgress(ctx context.Context, path, filename string, file io.Reader, onProgress ProgressFunc) (*Response, error) {
	return c.upload(ctx, path, uploadForm{field: "file", filename: filename, file: file}, onProgress)
}

// UploadVideo posts a video with JSON metadata to /video/upload.
func (c *Client) UploadVideo(ctx context.Context, filename string, video io.Reader, metadata map[string]any, onProgress ProgressFunc) (*Response, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: encode metadata: %v", shared.ErrInvalidInput, err)
	}

	form := uploadForm{field: "video", filename: filename, file: video, fields: [][2]string{{"metadata", string(meta)}}}
	return c.upload(ctx, "/video/upload", form, onProgress)
}

// upload streams form as the request body. The body is written by a goroutine through a pipe so the file is
// never held in memory.
func (c *Client) upload(ctx context.Context, path string, form uploadForm, onProgress ProgressFunc) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	total := form.size(mw.Boundary())

	go func() {
		pw.CloseWithError(form.write(mw, form.file))
	}()

	body := &progressReader{reader: pr, total: total, onProgress: onProgress}
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if total > 0 {
		req.ContentLength = total
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	c.logger.Debug("upload", "path", path, "bytes", total)
	resp, err := c.do(ctx, req)
	if err == nil {
		body.finish()
	}
	return resp, err
}

// uploadForm is a multipart body of one file followed by plain fields.
type uploadForm struct {
	field    string
	filename string
	file     io.Reader
	fields   [][2]string
}

func (f uploadForm) write(w *multipart.Writer, file io.Reader) error {
	part, err := w.CreateFormFile(f.field, f.filename)
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to build upload: %w", err)
		}
	}
	return w.Close()
}

// size is the encoded body length for boundary, or -1 when the file length is unknown.
func (f uploadForm) size(boundary string) int64 {
	n, ok := readerSize(f.file)
	if !ok {
		return -1
	}

	var counter countingWriter
	w := multipart.NewWriter(&counter)
	if err := w.SetBoundary(boundary); err != nil {
		return -1
	}
	if err := f.write(w, strings.NewReader("")); err != nil {
		return -1
	}
	return int64(counter) + n
}

// readerSize reports the bytes left in r for readers that know it.
func readerSize(r io.Reader) (int64, bool) {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len()), true
	case *os.File:
		info, err := v.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return 0, false
		}
		offset, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false
		}
		return info.Size() - offset, true
	default:
		return 0, false
	}
}

type countingWriter int64

func (c *countingWriter) Write(p []byte) (int, error) {
	*c += countingWriter(len(p))
	return len(p), nil
}

// progressReader reports read progress, never repeating a fraction.
type progressReader struct {
	reader     io.Reader
	total      int64
	onProgress ProgressFunc

	mu   sync.Mutex
	read int64
	last float64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 && p.total > 0 {
		p.mu.Lock()
		p.read += int64(n)
		p.report(min(float64(p.read)/float64(p.total), 1))
		p.mu.Unlock()
	}
	return n, err
}

// Close closes the underlying reader so the body writer stops when the transport gives up.
func (p *progressReader) Close() error {
	if c, ok := p.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(1)
}

// report must be called with mu held.
func (p *progressReader) report(fraction float64) {
	if p.onProgress == nil || fraction <= p.last {
		return
	}
	p.last = fraction
	p.onProgress(fraction)
}
