package webhdfs

import "time"

// WebHDFS operation names, selected via the op= query parameter.
const (
	OpCreate            = "CREATE"
	OpOpen              = "OPEN"
	OpMkdirs            = "MKDIRS"
	OpListStatus        = "LISTSTATUS"
	OpDelete            = "DELETE"
	OpRename            = "RENAME"
	OpGetFileStatus     = "GETFILESTATUS"
	OpGetContentSummary = "GETCONTENTSUMMARY"
)

// PathType tags a filesystem entry as a file or a directory.
type PathType string

const (
	PathTypeFile      PathType = "FILE"
	PathTypeDirectory PathType = "DIRECTORY"
)

// FileStatus represents HDFS file/directory metadata as reported by the
// namenode. Timestamps are milliseconds since the epoch, as on the wire.
type FileStatus struct {
	AccessTime       int64    `json:"accessTime"`
	BlockSize        int64    `json:"blockSize"`
	Group            string   `json:"group"`
	Length           int64    `json:"length"`
	ModificationTime int64    `json:"modificationTime"`
	Owner            string   `json:"owner"`
	PathSuffix       string   `json:"pathSuffix"`
	Permission       string   `json:"permission"`
	Replication      int      `json:"replication"`
	Type             PathType `json:"type"` // FILE or DIRECTORY
}

// IsDir reports whether the entry is a directory.
func (s *FileStatus) IsDir() bool {
	return s.Type != PathTypeFile
}

// Modified returns the modification time as a time.Time.
func (s *FileStatus) Modified() time.Time {
	return time.UnixMilli(s.ModificationTime)
}

// Accessed returns the last access time as a time.Time.
func (s *FileStatus) Accessed() time.Time {
	return time.UnixMilli(s.AccessTime)
}

// ContentSummary aggregates usage numbers for a directory tree.
type ContentSummary struct {
	DirectoryCount int64 `json:"directoryCount"`
	FileCount      int64 `json:"fileCount"`
	Length         int64 `json:"length"`
	Quota          int64 `json:"quota"`
	SpaceConsumed  int64 `json:"spaceConsumed"`
	SpaceQuota     int64 `json:"spaceQuota"`
}

// listStatusResponse is the WebHDFS response for LISTSTATUS.
type listStatusResponse struct {
	FileStatuses struct {
		FileStatus []FileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

// fileStatusResponse is the WebHDFS response for GETFILESTATUS.
type fileStatusResponse struct {
	FileStatus FileStatus `json:"FileStatus"`
}

// contentSummaryResponse is the WebHDFS response for GETCONTENTSUMMARY.
type contentSummaryResponse struct {
	ContentSummary ContentSummary `json:"ContentSummary"`
}
