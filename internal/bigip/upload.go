package bigip

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/f5devkit/as3ctl/internal/logger"
)

// UploadFile transfers a local file to the device's file-transfer endpoint.
// The device requires the body to be sliced into ranges; completed uploads
// appear under /var/config/rest/downloads/ named after the file's base name.
func (c *Client) UploadFile(ctx context.Context, localPath string) error {
	file, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	var (
		total    = info.Size()
		name     = filepath.Base(localPath)
		buffer   = make([]byte, uploadChunkSize)
		offset   int64
		chunkLen int
	)

	for offset < total {
		chunkLen, err = file.Read(buffer)
		if err != nil && err != io.EOF {
			return fmt.Errorf("read %s: %w", localPath, err)
		}

		if chunkLen == 0 {
			break
		}

		if err = c.uploadChunk(ctx, name, buffer[:chunkLen], offset, total); err != nil {
			return err
		}

		offset += int64(chunkLen)
	}

	logger.InfoKV(ctx, "File uploaded to device", "file", name, "bytes", total)

	return nil
}

// uploadChunk sends a single Content-Range slice of the file.
func (c *Client) uploadChunk(ctx context.Context, name string, chunk []byte, offset, total int64) error {
	req, err := c.newRequest(ctx, http.MethodPost, uploadPathPrefix+name, bytes.NewReader(chunk))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range",
		fmt.Sprintf("%d-%d/%d", offset, offset+int64(len(chunk))-1, total))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload chunk of %s: %w", name, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload chunk of %s: %w: %d", name, errUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
