package auth

// Recorder receives diagnostics that never change the auth contracts.
// observability.Metrics implements it.
type Recorder interface {
	SessionCheck(result string)
	AuthFetch(outcome string)
	Login(result string)
	Logout(result string)
}

type nopRecorder struct{}

func (nopRecorder) SessionCheck(string) {}
func (nopRecorder) AuthFetch(string)    {}
func (nopRecorder) Login(string)        {}
func (nopRecorder) Logout(string)       {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// Session check results.
const (
	CheckOK             = "ok"
	CheckNoSession      = "no_session"
	CheckProfileFailed  = "profile_failed"
	CheckInvalidProfile = "invalid_profile"
)

// Fetch outcomes in the store.
const (
	FetchApplied   = "applied"
	FetchDiscarded = "discarded"
)

// Login and logout results.
const (
	ResultOK          = "ok"
	ResultRejected    = "rejected"
	ResultServerError = "server_error"
	ResultTransport   = "transport"
)
