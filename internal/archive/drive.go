package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"tiktok-monitor-go/internal/config"
)

// DriveArchiver uploads media to a Google Drive folder and returns the
// shareable view link as the archive reference.
type DriveArchiver struct {
	service  *drive.Service
	folderID string
}

// NewDriveArchiver creates an archiver authenticated with a service account.
func NewDriveArchiver(ctx context.Context, cfg *config.DriveConfig) (*DriveArchiver, error) {
	service, err := drive.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveArchiver{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

// Store uploads the media under name, makes it viewable by anyone with the
// link, and returns the web view link.
func (a *DriveArchiver) Store(ctx context.Context, data []byte, name, description string) (string, error) {
	meta := &drive.File{
		Name:        name,
		Description: description,
		MimeType:    mimeType(name),
	}
	if a.folderID != "" {
		meta.Parents = []string{a.folderID}
	}

	file, err := a.service.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id, webViewLink, webContentLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", ErrArchive, name, err)
	}

	_, err = a.service.Permissions.Create(file.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: sharing %s: %v", ErrArchive, name, err)
	}

	link := file.WebViewLink
	if link == "" {
		link = file.WebContentLink
	}

	logrus.Infof("Archived %s to drive: %s", name, link)
	return link, nil
}

func mimeType(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".jpg") {
		return "image/jpeg"
	}
	return "video/mp4"
}
