package userdata

import "github.com/standardbeagle/webview/pkg/events"

// Bridge message kinds used by the user data screen.
const (
	KindFetchUserData         events.Kind = "fetchUserData"
	KindFetchUserDataResponse events.Kind = "fetchUserDataResponse"
	KindSetUserData           events.Kind = "setUserData"
	KindSetUserDataResponse   events.Kind = "setUserDataResponse"
)

type FetchUserDataRequest struct {
	UserID string `json:"userId"`
}

// FetchUserDataResponse carries either profile independently of the other.
type FetchUserDataResponse struct {
	RedditUser Optional[RemoteProfile] `json:"redditUser,omitzero"`
	DBUser     Optional[AppProfile]    `json:"dbUser,omitzero"`
}

type SetUserDataRequest struct {
	UserID   string      `json:"userId"`
	UserData *AppProfile `json:"userData"`
}

type SetUserDataResponse struct {
	Status Optional[string] `json:"status,omitzero"`
}

// DecodeFetchResponse decodes a fetchUserDataResponse payload.
func DecodeFetchResponse(msg events.Message) (FetchUserDataResponse, error) {
	var resp FetchUserDataResponse
	err := msg.Decode(&resp)
	return resp, err
}

// DecodeSetResponse decodes a setUserDataResponse payload.
func DecodeSetResponse(msg events.Message) (SetUserDataResponse, error) {
	var resp SetUserDataResponse
	err := msg.Decode(&resp)
	return resp, err
}
