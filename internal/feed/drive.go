package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	changeFields googleapi.Field = "nextPageToken,newStartPageToken," +
		"changes(fileId,removed,file(id,name,mimeType,parents,createdTime,modifiedTime,webViewLink,webContentLink,trashed))"
	parentFields googleapi.Field = "id,parents"

	webHookChannel = "web_hook"
)

// DriveOptions configures access to the Drive API
type DriveOptions struct {
	// CredentialsFile is a service-account or authorized-user JSON file.
	// Empty means Application Default Credentials.
	CredentialsFile string
	// Impersonate is the domain-wide delegation subject, service accounts only
	Impersonate string
	// AllDrives includes shared drives in the change feed
	AllDrives bool
}

// Drive implements Feed on top of the Drive v3 changes API
type Drive struct {
	svc       *drive.Service
	allDrives bool
}

// NewDrive builds a Drive feed. Extra client options (endpoint, HTTP client) are appended last,
// so tests can point it at a local server.
func NewDrive(ctx context.Context, opts DriveOptions, extra ...option.ClientOption) (*Drive, error) {
	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, extra...)

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	log.Info().
		Bool("allDrives", opts.AllDrives).
		Bool("impersonating", opts.Impersonate != "").
		Msg("drive change feed ready")

	return &Drive{svc: svc, allDrives: opts.AllDrives}, nil
}

// NewDriveFromService wraps an already configured service
func NewDriveFromService(svc *drive.Service, allDrives bool) *Drive {
	return &Drive{svc: svc, allDrives: allDrives}
}

func credentialOptions(ctx context.Context, opts DriveOptions) ([]option.ClientOption, error) {
	if opts.CredentialsFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("%w: default credentials: %v", ErrAuthentication, err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	data, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if opts.Impersonate != "" {
		jwtCfg, err := google.JWTConfigFromJSON(data, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("%w: service account: %v", ErrAuthentication, err)
		}
		jwtCfg.Subject = opts.Impersonate
		return []option.ClientOption{option.WithTokenSource(jwtCfg.TokenSource(ctx))}, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: credentials file: %v", ErrAuthentication, err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// StartCursor returns the token for "now" in the change feed
func (d *Drive) StartCursor(ctx context.Context) (string, error) {
	tok, err := d.svc.Changes.GetStartPageToken().
		SupportsAllDrives(d.allDrives).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify("get start page token", err)
	}
	return tok.StartPageToken, nil
}

// ListChanges fetches one page of changes starting at token (a cursor or a next-page token)
func (d *Drive) ListChanges(ctx context.Context, token string, pageSize int64) (ChangePage, error) {
	call := d.svc.Changes.List(token).
		Fields(changeFields).
		IncludeRemoved(true).
		SupportsAllDrives(d.allDrives).
		IncludeItemsFromAllDrives(d.allDrives).
		Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(pageSize)
	}

	res, err := call.Do()
	if err != nil {
		return ChangePage{}, classify("list changes", err)
	}

	page := ChangePage{
		Entries:       make([]ChangeEntry, 0, len(res.Changes)),
		NextPageToken: res.NextPageToken,
		NewStartToken: res.NewStartPageToken,
	}
	for _, ch := range res.Changes {
		if ch == nil {
			continue
		}
		page.Entries = append(page.Entries, toEntry(ch))
	}
	return page, nil
}

func toEntry(ch *drive.Change) ChangeEntry {
	entry := ChangeEntry{FileID: ch.FileId, Removed: ch.Removed}
	if f := ch.File; f != nil {
		if entry.FileID == "" {
			entry.FileID = f.Id
		}
		entry.Name = f.Name
		entry.MimeType = f.MimeType
		entry.Parents = f.Parents
		entry.CreatedTime = f.CreatedTime
		entry.ModifiedTime = f.ModifiedTime
		entry.WebViewLink = f.WebViewLink
		entry.WebContentLink = f.WebContentLink
		entry.Trashed = f.Trashed
	}
	return entry
}

// Parents returns the parent folder ids of an item; the storage root has none
func (d *Drive) Parents(ctx context.Context, itemID string) ([]string, error) {
	f, err := d.svc.Files.Get(itemID).
		Fields(parentFields).
		SupportsAllDrives(d.allDrives).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("get parents of "+itemID, err)
	}
	return f.Parents, nil
}

// CreateWatch subscribes a web_hook channel to the change feed starting at req.Cursor
func (d *Drive) CreateWatch(ctx context.Context, req WatchRequest) (WatchRegistration, error) {
	ch, err := d.svc.Changes.Watch(req.Cursor, &drive.Channel{
		Id:      req.ChannelID,
		Type:    webHookChannel,
		Address: req.Address,
		Token:   req.Token,
	}).
		SupportsAllDrives(d.allDrives).
		IncludeItemsFromAllDrives(d.allDrives).
		Context(ctx).
		Do()
	if err != nil {
		return WatchRegistration{}, classify("watch changes", err)
	}

	reg := WatchRegistration{
		ChannelID:   ch.Id,
		ResourceID:  ch.ResourceId,
		Address:     req.Address,
		StartCursor: req.Cursor,
	}
	if ch.Expiration > 0 {
		reg.Expiration = time.UnixMilli(ch.Expiration).UTC()
	}
	return reg, nil
}

// StopWatch stops a previously created channel
func (d *Drive) StopWatch(ctx context.Context, channelID, resourceID string) error {
	err := d.svc.Channels.Stop(&drive.Channel{Id: channelID, ResourceId: resourceID}).
		Context(ctx).
		Do()
	return classify("stop channel", err)
}
