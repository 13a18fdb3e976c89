// file: dto/config.go
package dto

type ConfigGeneralUpdateReq struct {
	CTFName string `json:"ctf_name" binding:"required"`
}

type ConfigDurationUpdateReq struct {
	DurationStartTS *int64 `json:"duration_start_ts"`
	DurationEndTS   *int64 `json:"duration_end_ts"`
}

type ConfigResp struct {
	CTFName         string `json:"ctf_name"`
	DurationStartTS *int64 `json:"duration_start_ts"`
	DurationEndTS   *int64 `json:"duration_end_ts"`
	IsActive        bool   `json:"is_active"`
}
