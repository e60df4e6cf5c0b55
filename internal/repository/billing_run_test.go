package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZilDuck/membership-market/internal/dev"
	"github.com/ZilDuck/membership-market/internal/elastic_search"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acct(n int) entity.Account {
	return entity.Account(fmt.Sprintf("0x%040x", n))
}

func sampleRun(id string, at time.Time) entity.BillingRun {
	run := entity.NewBillingRun(id, at, 30*24*time.Hour)
	run.ChargedMembers = entity.Accounts{acct(10), acct(11)}
	run.ChargedNFTIds = []uint64{1, 2}
	run.LostMembers = entity.Accounts{acct(12)}
	run.BurntNFTs = []uint64{3}
	run.Failures = []dev.Error{dev.NewError("Billing", "ChargeForMembership", fmt.Errorf("boom"), nil)}
	return run
}

func TestFileRepositoryAppendsRunsAndChargesLog(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileBillingRunRepository(dir)
	at := time.Date(2022, 3, 31, 12, 30, 5, 0, time.UTC)

	require.NoError(t, repo.Save(sampleRun("first", at)))
	require.NoError(t, repo.Save(sampleRun("second", at.Add(time.Hour))))

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Id)
	assert.Equal(t, []uint64{1, 2}, latest.ChargedNFTIds)
	require.Len(t, latest.Failures, 1)
	assert.Equal(t, "boom", latest.Failures[0].Error)

	runs, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[1].Id)

	data, err := os.ReadFile(filepath.Join(dir, "2022-03-31", "membershipCharges.txt"))
	require.NoError(t, err)
	expected := "2022-03-31, 12:30:05:\n" +
		"Charged Members: ['" + acct(10).String() + "', '" + acct(11).String() + "']\n" +
		"Charged NFT IDs: [1, 2]\n" +
		"Lost members: ['" + acct(12).String() + "']\n" +
		"Burnt NFT IDs: [3]\n\n\n"
	assert.True(t, strings.HasPrefix(string(data), expected))
	assert.Equal(t, 2, strings.Count(string(data), "Charged NFT IDs"))
}

func TestFileRepositoryEmpty(t *testing.T) {
	repo := NewFileBillingRunRepository(t.TempDir())

	runs, err := repo.List(5)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = repo.Latest()
	assert.ErrorIs(t, err, ErrBillingRunNotFound)
}

// searchCluster stores indexed documents and answers searches with all of
// them, most recent first.
type searchCluster struct {
	mu    sync.Mutex
	runs  []json.RawMessage
	bulks int
}

func (c *searchCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]interface{}, 0)
		for i := len(c.runs) - 1; i >= 0; i-- {
			hits = append(hits, map[string]interface{}{"_index": "runs", "_id": fmt.Sprintf("%d", i), "_source": c.runs[i]})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{"total": map[string]interface{}{"value": len(hits), "relation": "eq"}, "hits": hits},
		})
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		c.bulks++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"took": 1, "errors": false, "items": []interface{}{}})
	default:
		c.runs = append(c.runs, json.RawMessage(body))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"_index": "runs", "_id": "x", "result": "created"})
	}
}

func TestElasticRepositorySaveAndLatest(t *testing.T) {
	cluster := &searchCluster{}
	server := httptest.NewServer(cluster)
	t.Cleanup(server.Close)

	client, err := elastic.NewClient(elastic.SetURL(server.URL), elastic.SetSniff(false), elastic.SetHealthcheck(false))
	require.NoError(t, err)

	repo := NewBillingRunRepository(elastic_search.NewIndex(client, "false", 100))
	at := time.Date(2022, 3, 31, 12, 0, 0, 0, time.UTC)

	_, err = repo.Latest()
	assert.ErrorIs(t, err, ErrBillingRunNotFound)

	require.NoError(t, repo.Save(sampleRun("first", at)))
	require.NoError(t, repo.Save(sampleRun("second", at.Add(time.Hour))))
	assert.Equal(t, 2, cluster.bulks)

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Id)
	assert.Equal(t, entity.Accounts{acct(12)}, latest.LostMembers)
}
