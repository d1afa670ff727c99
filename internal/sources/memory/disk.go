package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"workhours/internal/core"
)

const accessKey = "last_access"

// Disk persists demo days with diskv. Keys are ISO dates, laid out as
// <base>/<yyyy>/<mm>/<dd>.
type Disk struct {
	d *diskv.Diskv
}

func NewDisk(basePath string) *Disk {
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPath,
		InverseTransform:  pathToKey,
		CacheSizeMax:      1024 * 1024,
	})}
}

func (d *Disk) Load(ctx context.Context) (map[core.DateKey]core.RawRecord, time.Time, error) {
	// cancelling stops the key walker when we return early
	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	days := make(map[core.DateKey]core.RawRecord)
	var last time.Time
	for key := range d.d.Keys(walkCtx.Done()) {
		if key == accessKey {
			b, err := d.d.Read(key)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("read access time: %w", err)
			}
			if err := last.UnmarshalText(b); err != nil {
				return nil, time.Time{}, fmt.Errorf("parse access time: %w", err)
			}
			continue
		}
		date, err := core.ParseDateKey(key)
		if err != nil {
			continue
		}
		b, err := d.d.Read(key)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("read day %s: %w", key, err)
		}
		var rec core.RawRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		days[date] = rec
	}
	return days, last, ctx.Err()
}

func (d *Disk) SaveDay(rec core.RawRecord) error {
	date, err := core.ParseDateKey(rec.Date)
	if err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.d.Write(date.String(), b)
}

func (d *Disk) SaveAccess(t time.Time) error {
	b, err := t.MarshalText()
	if err != nil {
		return err
	}
	return d.d.Write(accessKey, b)
}

func (d *Disk) Clear() error {
	return d.d.EraseAll()
}

func keyToPath(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKey(pk *diskv.PathKey) string {
	if len(pk.Path) == 0 {
		return pk.FileName
	}
	return strings.Join(pk.Path, "-") + "-" + pk.FileName
}
