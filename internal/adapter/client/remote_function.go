package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"wisdom-core/internal/domain/entity"
)

// RemoteFunction calls a hosted get-wisdom function, either Supabase's edge
// function or this service's own /v1/functions/get-wisdom.
type RemoteFunction struct {
	url          string
	anonKey      string
	serviceToken string
	http         *http.Client
}

// NewRemoteFunction takes the full function URL, e.g.
// https://<project>.supabase.co/functions/v1/get-wisdom.
func NewRemoteFunction(url, anonKey string, hc *http.Client) *RemoteFunction {
	if hc == nil {
		hc = &http.Client{}
	}
	return &RemoteFunction{url: url, anonKey: anonKey, http: hc}
}

// WithServiceToken sends token in the X-Service-Token header. Set it only
// when the function is served by this gateway.
func (f *RemoteFunction) WithServiceToken(token string) *RemoteFunction {
	f.serviceToken = token
	return f
}

func (f *RemoteFunction) Invoke(ctx context.Context, req entity.WisdomRequest) (*entity.RemoteResult, error) {
	headers := map[string]string{}
	if f.anonKey != "" {
		headers["Authorization"] = "Bearer " + f.anonKey
		headers["apikey"] = f.anonKey
	}
	if f.serviceToken != "" {
		headers["X-Service-Token"] = f.serviceToken
	}

	raw, status, err := postJSON(ctx, f.http, "remote-function", f.url, headers, req)
	if err != nil {
		// A structured error body still carries the useful fields.
		if status != 0 && gjson.ValidBytes(raw) && gjson.GetBytes(raw, "useFallback").Exists() {
			result := parseRemoteResult(raw)
			// A bare 5xx says nothing about the cause; leave the kind empty so
			// the body text gets classified instead.
			if kind := entity.KindForStatus(status); result.ErrorKind == "" && kind != entity.FailureUpstream {
				result.ErrorKind = kind.String()
			}
			return result, nil
		}
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return &entity.RemoteResult{Status: "error", UseFallback: true, Error: "malformed response", ErrorKind: "upstream"}, nil
	}
	return parseRemoteResult(raw), nil
}

func parseRemoteResult(raw []byte) *entity.RemoteResult {
	fields := gjson.GetManyBytes(raw, "answer", "status", "useFallback", "error", "errorKind", "message")
	return &entity.RemoteResult{
		Answer:      strings.TrimSpace(fields[0].String()),
		Status:      fields[1].String(),
		UseFallback: fields[2].Bool(),
		Error:       fields[3].String(),
		ErrorKind:   fields[4].String(),
		Message:     fields[5].String(),
	}
}
