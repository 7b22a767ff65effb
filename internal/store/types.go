package store

// Entry is one pinned or snapshotted tab.
type Entry struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

// ClosedEntry is one recently closed tab.
type ClosedEntry struct {
	Entry
	ClosedAt int64 `json:"closedAt"`
}

// Folder groups pinned entries by URL. EntryIndices is the legacy on-disk
// shape, index-based and fragile under reordering; Normalize migrates it.
type Folder struct {
	Name         string   `json:"name"`
	EntryURLs    []string `json:"entryUrls"`
	Collapsed    bool     `json:"collapsed"`
	EntryIndices []int    `json:"entryIndices,omitempty"`
}

// Theme is a space's color palette.
type Theme struct {
	Primary    string `json:"primary"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Accent     string `json:"accent"`
}

// Space is the live working set bound to a browser window.
type Space struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Emoji            string        `json:"emoji"`
	PinnedEntries    []Entry       `json:"pinnedEntries"`
	PinnedFolders    []Folder      `json:"pinnedFolders"`
	Sections         []string      `json:"sections"`
	Theme            Theme         `json:"theme"`
	AutoArchiveHours int           `json:"autoArchiveHours"`
	Saved            bool          `json:"saved"`
	CreatedAt        string        `json:"createdAt"`
	RecentlyClosed   []ClosedEntry `json:"recentlyClosed"`
}

// WorkspaceFolder is a snapshotted tab group. TabIndices index into the
// workspace's unpinned tab list.
type WorkspaceFolder struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	TabIndices []int  `json:"tabIndices"`
}

// Workspace is a saved, restorable snapshot of a space and its window.
type Workspace struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Emoji        string            `json:"emoji"`
	PinnedTabs   []Entry           `json:"pinnedTabs"`
	Tabs         []Entry           `json:"tabs"`
	Folders      []WorkspaceFolder `json:"folders"`
	Sections     []string          `json:"sections"`
	Theme        Theme             `json:"theme"`
	CreatedAt    string            `json:"createdAt"`
	LastSyncedAt string            `json:"lastSyncedAt,omitempty"`
	Saved        bool              `json:"saved"`
}
