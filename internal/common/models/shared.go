package models

import "time"

// Log is the persisted shape of an application log line shipped to Mongo
// by the async log writer.
type Log struct {
	Message      string    `json:"message" bson:"message"`
	Caller       string    `json:"caller" bson:"caller"`
	MappingId    string    `json:"mapping_id,omitempty" bson:"mapping_id,omitempty"`
	LogLevelId   int       `json:"log_level_id" bson:"log_level_id"`
	AppId        string    `json:"app_id" bson:"app_id"`
	CreatedOnUtc time.Time `json:"created_on_utc" bson:"created_on_utc"`
}
