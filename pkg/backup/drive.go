package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const jsonMIME = "application/json"

// DriveStore is a FileStore over the user's Google Drive.
type DriveStore struct {
	files *drive.FilesService
}

var _ FileStore = (*DriveStore)(nil)

// NewDriveStore builds a Drive client acting as the owner of ts.
func NewDriveStore(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*DriveStore, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	return newDriveStore(ctx, opts...)
}

func newDriveStore(ctx context.Context, opts ...option.ClientOption) (*DriveStore, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveStore{files: srv.Files}, nil
}

func (d *DriveStore) Find(ctx context.Context, name string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`))
	list, err := d.files.List().
		Q(q).
		Spaces("drive").
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, err
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

func (d *DriveStore) Create(ctx context.Context, name string, data []byte) error {
	meta := &drive.File{Name: name, MimeType: jsonMIME}
	_, err := d.files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(jsonMIME)).
		Fields("id").
		Context(ctx).
		Do()
	return err
}

func (d *DriveStore) Update(ctx context.Context, id string, data []byte) error {
	_, err := d.files.Update(id, &drive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(jsonMIME)).
		Context(ctx).
		Do()
	return err
}

func (d *DriveStore) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := d.files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
