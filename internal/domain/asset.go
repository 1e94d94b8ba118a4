package domain

import "time"

// AssetKind enumerates media asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
)

// AssetSource records how an asset entered the library.
type AssetSource string

const (
	AssetSourceGenerated AssetSource = "generated"
)

// MediaAsset is a stored file owned by an account.
type MediaAsset struct {
	ID                 string
	AccountID          string
	Kind               AssetKind
	StorageKey         string
	URL                string
	MIMEType           string
	Bytes              int64
	Source             AssetSource
	GeneratedContentID *string
	CreatedAt          time.Time
}

// CompletedImage is the payload persisted when a job succeeds.
type CompletedImage struct {
	JobID     string
	ContentID string
	Asset     MediaAsset
	Model     string
	Prompt    string
}
