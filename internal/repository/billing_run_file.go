package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	runsFile    = "runs.jsonl"
	chargesFile = "membershipCharges.txt"
)

type fileBillingRunRepository struct {
	mu  sync.Mutex
	dir string
}

// NewFileBillingRunRepository keeps runs as json lines in dir, plus a daily
// human readable charges log under dir/<date>/.
func NewFileBillingRunRepository(dir string) BillingRunRepository {
	return &fileBillingRunRepository{dir: dir}
}

func (r *fileBillingRunRepository) Save(run entity.BillingRun) error {
	line, err := json.Marshal(run)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := appendFile(filepath.Join(r.dir, runsFile), append(line, '\n')); err != nil {
		return err
	}

	day := filepath.Join(r.dir, run.Timestamp.Format("2006-01-02"))
	return appendFile(filepath.Join(day, chargesFile), []byte(chargesBlock(run)))
}

func (r *fileBillingRunRepository) Latest() (*entity.BillingRun, error) {
	runs, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrBillingRunNotFound
	}
	return &runs[0], nil
}

// List returns up to limit runs, newest first.
func (r *fileBillingRunRepository) List(limit int) ([]entity.BillingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make([]entity.BillingRun, 0)

	f, err := os.Open(filepath.Join(r.dir, runsFile))
	if os.IsNotExist(err) {
		return runs, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var run entity.BillingRun
		if err := json.Unmarshal(scanner.Bytes(), &run); err != nil {
			return nil, fmt.Errorf("%s: %w", runsFile, err)
		}
		runs = append(runs, run)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func appendFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func chargesBlock(run entity.BillingRun) string {
	return fmt.Sprintf("%s:\nCharged Members: %s\nCharged NFT IDs: %s\nLost members: %s\nBurnt NFT IDs: %s\n\n\n",
		run.Timestamp.Format("2006-01-02, 15:04:05"),
		quoted(run.ChargedMembers.Strings()),
		ids(run.ChargedNFTIds),
		quoted(run.LostMembers.Strings()),
		ids(run.BurntNFTs),
	)
}

func quoted(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = "'" + v + "'"
	}
	return "[" + strings.Join(q, ", ") + "]"
}

func ids(values []uint64) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
