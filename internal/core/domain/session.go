package domain

type UserInfo struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Theme    string `json:"theme,omitempty"`
	SignedIn bool   `json:"signed_in"`
}

// Session is the typed view over the per-user blobs the UI used to keep in
// browser storage.
type Session struct {
	User    UserInfo     `json:"user"`
	Account TokenAccount `json:"account"`
}
