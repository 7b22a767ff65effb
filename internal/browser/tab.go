package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
)

// tab is the concrete tab handle backed by a Rod page. The locator hands
// these out; guard and bridge unwrap them to reach the page.
type tab struct {
	page *rod.Page
	id   string
	url  string
}

func (t *tab) ID() string  { return t.id }
func (t *tab) URL() string { return t.url }

func unwrap(st interface{ ID() string }) (*tab, error) {
	t, ok := st.(*tab)
	if !ok {
		return nil, fmt.Errorf("browser: foreign tab handle %T", st)
	}
	return t, nil
}

// errNoDispatcher marks a page where the scrape dispatcher is absent from
// the execution context, which happens after every navigation.
var errNoDispatcher = errors.New("browser: dispatcher not installed")

const dispatchJS = `(raw) => {
	if (!window.__homed || !window.__homed.dispatch) return null;
	return window.__homed.dispatch(raw);
}`

// dispatch performs one request/response exchange with the page-resident
// dispatcher. The page returns a JSON envelope; a page-side failure comes
// back as an error carrying the envelope's message.
func dispatch(ctx context.Context, page *rod.Page, raw string) (json.RawMessage, error) {
	res, err := page.Context(ctx).Eval(dispatchJS, raw)
	if err != nil {
		return nil, fmt.Errorf("browser: dispatch eval: %w", err)
	}
	if res.Value.Nil() {
		return nil, errNoDispatcher
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &env); err != nil {
		return nil, fmt.Errorf("browser: dispatch envelope: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("browser: page reported: %s", env.Error)
	}
	return env.Data, nil
}
