package domain

// Setting keys. Settings are soft-schema: a missing key reads as the
// caller-supplied default.
const (
	SettingVotingOpen      = "votingOpen"
	SettingShowResults     = "showResults"
	SettingVotingSessionID = "votingSessionId"
)

// DefaultSessionID is the sentinel session id before any reset has
// rotated it.
const DefaultSessionID = "default-session"

// SessionInfo is the public view of the global toggles. Clients compare
// SessionID against their locally cached "already voted" marker; the
// server-side registry stays authoritative regardless.
type SessionInfo struct {
	VotingOpen  bool   `json:"voting_open"`
	ShowResults bool   `json:"show_results"`
	SessionID   string `json:"session_id"`
}
