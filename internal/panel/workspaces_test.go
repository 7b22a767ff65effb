package panel

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hazyhaar/homed/internal/browser"
	"github.com/hazyhaar/homed/internal/store"
)

func TestCreateWorkspaceSnapshotsWindow(t *testing.T) {
	f := newFixture(t)
	sp := mustSpace(t, f, 7)
	f.do(t, "POST", "/api/spaces/"+sp.ID+"/pins", map[string]string{"url": "https://pinned.test/"})
	f.tabs.tabs = []browser.TabState{
		{ID: "t1", WindowID: 7, URL: "https://pinned.test/", Title: "Pinned"},
		{ID: "t2", WindowID: 7, URL: "https://live.test/", Title: "Live"},
		{ID: "t3", WindowID: 8, URL: "https://other.test/", Title: "Other window"},
	}

	resp, body := f.do(t, "POST", "/api/workspaces",
		map[string]any{"spaceId": sp.ID, "windowId": 7, "name": "Morning", "emoji": "🌅"})
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var ws store.Workspace
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ws.ID, "saved_") {
		t.Fatalf("id = %q", ws.ID)
	}
	if len(ws.PinnedTabs) != 1 || ws.PinnedTabs[0].URL != "https://pinned.test/" {
		t.Fatalf("pinnedTabs = %+v", ws.PinnedTabs)
	}
	// The pinned URL and the other window's tab stay out of the live list.
	if len(ws.Tabs) != 1 || ws.Tabs[0].URL != "https://live.test/" {
		t.Fatalf("tabs = %+v", ws.Tabs)
	}
}

func TestSwitchWorkspaceBindsWindow(t *testing.T) {
	f := newFixture(t)
	sp := mustSpace(t, f, 1)
	_, body := f.do(t, "POST", "/api/workspaces",
		map[string]any{"spaceId": sp.ID, "windowId": 1, "name": "W"})
	var ws store.Workspace
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}

	resp, body := f.do(t, "POST", "/api/workspaces/"+ws.ID+"/switch", map[string]int{"windowId": 9})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var adopted store.Space
	if err := json.Unmarshal(body, &adopted); err != nil {
		t.Fatal(err)
	}
	if adopted.ID != ws.ID {
		t.Fatalf("adopted space = %+v", adopted)
	}

	// The window now resolves to the workspace's space.
	_, body = f.do(t, "GET", "/api/windows/9/space", nil)
	var resolved store.Space
	if err := json.Unmarshal(body, &resolved); err != nil {
		t.Fatal(err)
	}
	if resolved.ID != ws.ID {
		t.Fatalf("window resolves to %s, want %s", resolved.ID, ws.ID)
	}

	_, body = f.do(t, "GET", "/api/workspaces/last", nil)
	var last map[string]string
	if err := json.Unmarshal(body, &last); err != nil {
		t.Fatal(err)
	}
	if last["lastActiveWorkspaceId"] != ws.ID {
		t.Fatalf("last = %+v", last)
	}
}

func TestRestoreWorkspaceOpensTabs(t *testing.T) {
	f := newFixture(t)
	sp := mustSpace(t, f, 1)
	f.do(t, "POST", "/api/spaces/"+sp.ID+"/pins", map[string]string{"url": "https://pinned.test/"})
	f.tabs.tabs = []browser.TabState{
		{ID: "t1", WindowID: 1, URL: "https://live.test/", Title: "Live"},
	}
	_, body := f.do(t, "POST", "/api/workspaces",
		map[string]any{"spaceId": sp.ID, "windowId": 1, "name": "W"})
	var ws store.Workspace
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}

	resp, body := f.do(t, "POST", "/api/workspaces/"+ws.ID+"/restore", map[string]int{"windowId": 5})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var res struct {
		Opened int `json:"opened"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Opened != 2 {
		t.Fatalf("opened = %d, urls %v", res.Opened, f.opener.opened)
	}
	if len(f.opener.opened) != 2 || f.opener.opened[0] != "https://pinned.test/" {
		t.Fatalf("opened urls = %v", f.opener.opened)
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	f := newFixture(t)
	sp := mustSpace(t, f, 1)
	_, body := f.do(t, "POST", "/api/workspaces",
		map[string]any{"spaceId": sp.ID, "windowId": 1, "name": "W"})
	var ws store.Workspace
	if err := json.Unmarshal(body, &ws); err != nil {
		t.Fatal(err)
	}
	f.do(t, "POST", "/api/workspaces/"+ws.ID+"/switch", map[string]int{"windowId": 1})

	resp, _ := f.do(t, "DELETE", "/api/workspaces/"+ws.ID, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	_, body = f.do(t, "GET", "/api/workspaces", nil)
	var list []store.Workspace
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("workspaces = %+v", list)
	}
	resp, _ = f.do(t, "GET", "/api/workspaces/"+ws.ID, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("get deleted status = %d", resp.StatusCode)
	}
}
