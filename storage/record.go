package storage

import (
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

var ErrTagsAlreadySet = errors.New("tags already set")

// Record is the measurement published every cycle. Its tags are set once,
// its fields are replaced before every publish.
type Record struct {
	name   string
	tags   map[string]string
	fields map[string]interface{}
}

func NewRecord(name string) *Record {
	return &Record{
		name:   name,
		fields: make(map[string]interface{}),
	}
}

func (r *Record) SetTags(tags map[string]string) error {
	if r.tags != nil {
		return ErrTagsAlreadySet
	}
	r.tags = make(map[string]string, len(tags))
	for k, v := range tags {
		r.tags[k] = v
	}
	return nil
}

func (r *Record) Tags() map[string]string {
	tags := make(map[string]string, len(r.tags))
	for k, v := range r.tags {
		tags[k] = v
	}
	return tags
}

func (r *Record) ClearFields() {
	for k := range r.fields {
		delete(r.fields, k)
	}
}

func (r *Record) AddField(name string, value float64) {
	r.fields[name] = value
}

// Point snapshots the record at ts.
func (r *Record) Point(ts time.Time) *write.Point {
	return influxdb2.NewPoint(r.name, r.tags, r.fields, ts)
}
