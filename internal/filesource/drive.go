package filesource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
)

const processedFolderName = "processed"

// Drive serves files from a Google Drive folder. Processed files move into a
// "processed" subfolder created on demand.
type Drive struct {
	svc      *drive.Service
	folderID string

	mu          sync.Mutex
	processedID string
}

// NewDrive creates a Drive source reading from the given folder.
func NewDrive(svc *drive.Service, folderID string) *Drive {
	return &Drive{svc: svc, folderID: folderID}
}

func (d *Drive) List(ctx context.Context, extension string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != 'application/vnd.google-apps.folder'", d.folderID)
	var out []File
	pageToken := ""
	for {
		call := d.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, size, modifiedTime)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive: list folder %s: %w", d.folderID, err)
		}
		for _, f := range res.Files {
			if extension != "" && !strings.HasSuffix(strings.ToLower(f.Name), strings.ToLower(extension)) {
				continue
			}
			modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
			out = append(out, File{
				ID:           f.Id,
				Name:         f.Name,
				SizeBytes:    f.Size,
				LastModified: modified,
			})
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func (d *Drive) ReadAsText(ctx context.Context, f File) (string, error) {
	res, err := d.svc.Files.Get(f.ID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("drive: download %q: %w", f.Name, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("drive: read body of %q: %w", f.Name, err)
	}
	return string(data), nil
}

func (d *Drive) MoveToProcessed(ctx context.Context, f File) error {
	processedID, err := d.ensureProcessedFolder(ctx)
	if err != nil {
		return err
	}
	_, err = d.svc.Files.Update(f.ID, nil).
		AddParents(processedID).
		RemoveParents(d.folderID).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive: move %q to processed: %w", f.Name, err)
	}
	return nil
}

func (d *Drive) ensureProcessedFolder(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.processedID != "" {
		return d.processedID, nil
	}

	query := fmt.Sprintf(
		"'%s' in parents and name = '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		d.folderID, processedFolderName,
	)
	res, err := d.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: look up processed folder: %w", err)
	}
	if len(res.Files) > 0 {
		d.processedID = res.Files[0].Id
		return d.processedID, nil
	}

	created, err := d.svc.Files.Create(&drive.File{
		Name:     processedFolderName,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{d.folderID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: create processed folder: %w", err)
	}
	d.processedID = created.Id
	return d.processedID, nil
}
