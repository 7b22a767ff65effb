package extractor

import _ "embed"

// Each program installs a shared dispatcher on first evaluation and then
// registers its own scrape handler. Re-evaluating a program replaces the
// handler in place, so injection is idempotent.
//
// The dispatcher protocol mirrors the orchestrator's request names:
//
//	dispatch('{"type":"PING"}')           -> {"success":true,"data":{"services":[...]}}
//	dispatch('{"type":"SCRAPE_GITHUB"}')  -> {"success":true,"data":[...]} | {"success":false,"error":"..."}

//go:embed programs/github.js
var githubJS string

//go:embed programs/slack.js
var slackJS string

//go:embed programs/calendar.js
var calendarJS string
