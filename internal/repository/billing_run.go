package repository

import (
	"encoding/json"
	"errors"
	"github.com/ZilDuck/membership-market/internal/elastic_search"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

var (
	ErrBillingRunNotFound = errors.New("billing run not found")
)

// BillingRunRepository is the append only log of billing runs.
type BillingRunRepository interface {
	Save(run entity.BillingRun) error
	Latest() (*entity.BillingRun, error)
	List(limit int) ([]entity.BillingRun, error)
}

type billingRunRepository struct {
	elastic elastic_search.Index
}

func NewBillingRunRepository(elastic elastic_search.Index) BillingRunRepository {
	return billingRunRepository{elastic}
}

// Save indexes the run document straight away and its charge records in bulk.
func (r billingRunRepository) Save(run entity.BillingRun) error {
	if err := r.elastic.Save(elastic_search.BillingRunIndex.Get(), run); err != nil {
		return err
	}

	for _, record := range run.Records() {
		r.elastic.AddIndexRequest(elastic_search.ChargeIndex.Get(), record, elastic_search.ChargeCreate)
	}

	actions, err := r.elastic.Persist()
	if err != nil {
		return err
	}

	zap.L().With(zap.String("run", run.Id), zap.Int("charges", actions)).Info("BillingRunRepository: Run indexed")
	return nil
}

func (r billingRunRepository) Latest() (*entity.BillingRun, error) {
	runs, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrBillingRunNotFound
	}
	return &runs[0], nil
}

func (r billingRunRepository) List(limit int) ([]entity.BillingRun, error) {
	results, err := search(r.elastic.GetClient().
		Search(elastic_search.BillingRunIndex.Get()).
		Sort("timestamp", false).
		Size(limit))

	return r.findMany(results, err)
}

func (r billingRunRepository) findMany(results *elastic.SearchResult, err error) ([]entity.BillingRun, error) {
	runs := make([]entity.BillingRun, 0)

	if err != nil {
		return runs, err
	}

	for _, hit := range results.Hits.Hits {
		var run entity.BillingRun
		if err := json.Unmarshal(hit.Source, &run); err != nil {
			zap.L().With(zap.Error(err), zap.String("id", hit.Id)).Warn("BillingRunRepository: Unreadable run")
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}
