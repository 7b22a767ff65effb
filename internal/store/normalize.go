package store

import (
	"slices"
	"strings"
)

// DefaultSections is the section list for spaces that predate sections.
var DefaultSections = []string{"github", "slack", "calendar"}

// DefaultTheme is applied to stored spaces with no theme.
var DefaultTheme = Theme{
	Primary:    "#6366f1",
	Background: "#0f1117",
	Surface:    "#1a1d27",
	Accent:     "#818cf8",
}

// NewSpaceTheme is the palette for freshly created spaces.
var NewSpaceTheme = Theme{
	Primary:    "#5c6bc0",
	Background: "#f5f0e8",
	Surface:    "#faf7f2",
	Accent:     "#3f51b5",
}

// Normalize repairs a space loaded from storage: fills defaults, clamps the
// emoji, migrates legacy index-based folders to URL-based ones, and snaps
// the archive threshold to its two allowed values. Every read path goes
// through here, so the rest of the code never sees a malformed space.
func Normalize(sp Space) Space {
	if sp.Name == "" {
		sp.Name = "Unnamed"
	}
	sp.Emoji = clampRunes(sp.Emoji, 2)
	if sp.PinnedEntries == nil {
		sp.PinnedEntries = []Entry{}
	}

	folders := make([]Folder, 0, len(sp.PinnedFolders))
	for _, f := range sp.PinnedFolders {
		if f.EntryURLs == nil && f.EntryIndices != nil {
			for _, i := range f.EntryIndices {
				if i >= 0 && i < len(sp.PinnedEntries) && sp.PinnedEntries[i].URL != "" {
					f.EntryURLs = append(f.EntryURLs, sp.PinnedEntries[i].URL)
				}
			}
		}
		if f.EntryURLs == nil {
			f.EntryURLs = []string{}
		}
		f.EntryIndices = nil
		folders = append(folders, f)
	}
	sp.PinnedFolders = folders

	if sp.Sections == nil {
		sp.Sections = slices.Clone(DefaultSections)
	}
	if sp.Theme == (Theme{}) {
		sp.Theme = DefaultTheme
	}
	if sp.AutoArchiveHours != 24 {
		sp.AutoArchiveHours = 12
	}
	if sp.RecentlyClosed == nil {
		sp.RecentlyClosed = []ClosedEntry{}
	}
	return sp
}

// NormalizeWorkspace repairs a saved workspace loaded from storage: clamps
// the emoji, fills absent collections, and defaults the theme to the
// new-space palette. Every workspace read path goes through here, matching
// what Normalize does for spaces.
func NormalizeWorkspace(w Workspace) Workspace {
	w.Emoji = clampRunes(w.Emoji, 2)
	if w.PinnedTabs == nil {
		w.PinnedTabs = []Entry{}
	}
	if w.Tabs == nil {
		w.Tabs = []Entry{}
	}
	if w.Folders == nil {
		w.Folders = []WorkspaceFolder{}
	}
	if w.Sections == nil {
		w.Sections = slices.Clone(DefaultSections)
	}
	if w.Theme == (Theme{}) {
		w.Theme = NewSpaceTheme
	}
	return w
}

// clampRunes trims whitespace and keeps at most max codepoints. Emoji are
// user input pasted from anywhere.
func clampRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
