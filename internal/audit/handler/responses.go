package handler

import (
	"time"

	"calculation/internal/audit"
)

// RecordResponse is one entry of the audit listing.
type RecordResponse struct {
	RequestTime string `json:"requestTime"`
	Endpoint    string `json:"endpoint"`
	Incoming    string `json:"incoming"`
	Result      string `json:"result"`
	Success     bool   `json:"success"`
}

func FromRecord(r audit.Record) RecordResponse {
	return RecordResponse{
		RequestTime: r.RequestTime.UTC().Format(time.RFC3339Nano),
		Endpoint:    r.Endpoint,
		Incoming:    r.Incoming,
		Result:      r.Result,
		Success:     r.Success,
	}
}
