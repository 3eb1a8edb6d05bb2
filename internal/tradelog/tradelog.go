package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

var ist = time.FixedZone("IST", 19800)

const (
	StatusPlaced = "PLACED"
	StatusFailed = "FAILED"
)

// Entry is one placement attempt.
type Entry struct {
	Time    string
	BatchID string
	Symbol  string
	Side    string
	Qty     int
	Price   float64
	OrderID string `json:",omitempty"`
	Status  string
	Error   string `json:",omitempty"`
}

func Dir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// DailyPath is the log file for t's IST calendar day.
func DailyPath(t time.Time) string {
	d := t.In(ist).Format("2006-01-02")
	return filepath.Join(Dir(), d+".txt")
}

func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(ist)
	e.Time = now.Format("2006-01-02 15:04:05")
	p := DailyPath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the entries logged on t's IST day. Unparseable lines are
// skipped. A missing file yields no entries.
func ReadDay(t time.Time) ([]Entry, error) {
	f, err := os.Open(DailyPath(t))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips daily logs last modified more than retentionDays ago.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(Dir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := d.Info()
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// if already gz exists, remove original .txt
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}
		if compress(p, gz) == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, err = io.Copy(gw, in)
	if cerr := gw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
	}
	return err
}
