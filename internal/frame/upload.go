package frame

import (
	"bufio"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/tphakala/facewatch/internal/errors"
)

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// Upload is a one-shot source holding a single decoded image.
type Upload struct {
	img    image.Image
	name   string
	format string
}

// DecodeUpload validates that r holds an image and decodes it.
// Anything that is not an image media type is rejected as a validation error.
func DecodeUpload(r io.Reader, name string) (*Upload, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.New(fmt.Errorf("read upload: %w", err)).
			Component("frame.upload").
			Category(errors.CategoryFileIO).
			Context("file", name).
			Build()
	}

	mediaType := http.DetectContentType(head)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, errors.Newf("%s is not an image (detected %s)", name, mediaType).
			Component("frame.upload").
			Category(errors.CategoryValidation).
			Context("media_type", mediaType).
			Build()
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, errors.New(fmt.Errorf("decode %s: %w", mediaType, err)).
			Component("frame.upload").
			Category(errors.CategoryImageDecode).
			Context("file", name).
			Context("media_type", mediaType).
			Build()
	}

	return &Upload{img: img, name: name, format: format}, nil
}

// OpenUpload reads and decodes the image file at path.
func OpenUpload(path string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("frame.upload").
			Category(errors.CategoryFileIO).
			Context("file", path).
			Build()
	}
	defer f.Close()

	return DecodeUpload(f, filepath.Base(path))
}

// Frame returns the decoded image. Every call returns the same frame.
func (u *Upload) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return u.img, nil
}

// Name returns the upload file name.
func (u *Upload) Name() string { return u.name }

// Format returns the decoder that read the image, e.g. "png".
func (u *Upload) Format() string { return u.format }

// Size returns the image dimensions.
func (u *Upload) Size() image.Point { return u.img.Bounds().Size() }
