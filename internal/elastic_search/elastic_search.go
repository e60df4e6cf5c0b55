package elastic_search

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/log"
	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/olivere/elastic/v7"
	"github.com/patrickmn/go-cache"
	"github.com/sha1sum/aws_signing_client"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Index interface {
	GetClient() *elastic.Client

	InstallMappings() error

	AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction)
	AddUpdateRequest(index string, entity entity.Entity, reqAction RequestAction)
	HasRequest(entity entity.Entity) bool
	AddRequest(index string, entity entity.Entity, reqType RequestType, reqAction RequestAction)
	GetEntitiesByIndex(index string) []entity.Entity
	GetRequests() []Request
	GetRequest(id string) *Request
	ClearRequests()

	Save(index string, entity entity.Entity) error
	BatchPersist() bool
	Persist() (int, error)
}

type index struct {
	client    *elastic.Client
	cache     *cache.Cache
	refresh   string
	bulkCount int
	retryWait time.Duration
}

type Request struct {
	Index  string
	Entity entity.Entity
	Type   RequestType
	Action RequestAction
}

type RequestType string

const (
	IndexRequest  RequestType = "index"
	UpdateRequest RequestType = "update"
)

type RequestAction string

const (
	BillingRunCreate RequestAction = "BillingRunCreate"
	ChargeCreate     RequestAction = "ChargeCreate"
)

const saveAttempts int = 3

var ErrTooManyAttempts = errors.New("too many attempts")

func New() (Index, error) {
	client, err := newClient()
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticCache: Failed to create client")
		return nil, err
	}

	return NewIndex(client, config.Get().ElasticSearch.Refresh, config.Get().ElasticSearch.BulkPersistCount), nil
}

func NewIndex(client *elastic.Client, refresh string, bulkCount int) Index {
	if bulkCount < 1 {
		bulkCount = 1
	}
	return index{client, cache.New(5*time.Minute, 10*time.Minute), refresh, bulkCount, time.Second}
}

func newClient() (*elastic.Client, error) {
	cfg := config.Get()
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(strings.Join(cfg.ElasticSearch.Hosts, ",")),
		elastic.SetSniff(cfg.ElasticSearch.Sniff),
		elastic.SetHealthcheck(cfg.ElasticSearch.HealthCheck),
	}

	if cfg.ElasticSearch.Debug {
		opts = append(opts, elastic.SetTraceLog(log.ElasticLogger{}))
	}

	if cfg.ElasticSearch.Aws {
		creds := credentials.NewStaticCredentials(cfg.Aws.AccessKey, cfg.Aws.SecretKey, cfg.Aws.Token)
		awsClient, err := aws_signing_client.New(v4.NewSigner(creds), nil, "es", cfg.Aws.Region)
		if err != nil {
			return nil, err
		}

		opts = append(opts, elastic.SetHttpClient(awsClient))
		opts = append(opts, elastic.SetScheme("https"))
		return elastic.NewClient(opts...)
	}

	if cfg.ElasticSearch.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(
			cfg.ElasticSearch.Username,
			cfg.ElasticSearch.Password,
		))
	}

	return elastic.NewClient(opts...)
}

func (i index) GetClient() *elastic.Client {
	return i.client
}

// InstallMappings creates one index per json file in the mapping directory,
// named after the file.
func (i index) InstallMappings() error {
	zap.L().Info("ElasticCache: Install Mappings")
	dir := config.Get().ElasticSearch.MappingDir

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("elastic mappings directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		b, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return fmt.Errorf("elastic mappings file %s: %w", f.Name(), err)
		}

		idx := Indices(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
		if err = i.createIndex(idx.Get(), b); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Get(), err)
		}
	}

	return nil
}

func (i index) createIndex(index string, mapping []byte) error {
	ctx := context.Background()

	exists, err := i.client.IndexExists(index).Do(ctx)
	if err != nil || exists {
		return err
	}

	createIndex, err := i.client.CreateIndex(index).BodyString(string(mapping)).Do(ctx)
	if err != nil {
		return err
	}

	if createIndex.Acknowledged {
		zap.S().Infof("ElasticCache: Created index %s", index)
	}

	return nil
}

func (i index) AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", index),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticCache: AddIndexRequest")

	i.AddRequest(index, entity, IndexRequest, reqAction)
}

// AddUpdateRequest buffers an update. An update of a document still waiting
// to be indexed replaces the pending document instead.
func (i index) AddUpdateRequest(index string, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", index),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticCache: AddUpdateRequest")

	if cached, found := i.cache.Get(entity.Slug()); found && cached.(Request).Type == IndexRequest {
		i.AddRequest(index, entity, IndexRequest, reqAction)
		return
	}

	i.AddRequest(index, entity, UpdateRequest, reqAction)
}

func (i index) HasRequest(entity entity.Entity) bool {
	_, found := i.cache.Get(entity.Slug())

	return found
}

func (i index) AddRequest(index string, entity entity.Entity, reqType RequestType, reqAction RequestAction) {
	i.cache.Set(entity.Slug(), Request{index, entity, reqType, reqAction}, cache.DefaultExpiration)
}

func (i index) GetEntitiesByIndex(index string) []entity.Entity {
	entities := make([]entity.Entity, 0)
	for _, req := range i.GetRequests() {
		if req.Index == index {
			entities = append(entities, req.Entity)
		}
	}

	return entities
}

// GetRequests returns the buffered requests ordered by slug.
func (i index) GetRequests() []Request {
	requests := make([]Request, 0)

	for _, item := range i.cache.Items() {
		requests = append(requests, item.Object.(Request))
	}
	sort.Slice(requests, func(a, b int) bool {
		return requests[a].Entity.Slug() < requests[b].Entity.Slug()
	})

	return requests
}

func (i index) GetRequest(id string) *Request {
	if item, found := i.cache.Get(id); found {
		req := item.(Request)
		return &req
	}
	return nil
}

func (i index) ClearRequests() {
	i.cache.Flush()
}

func (i index) Save(index string, entity entity.Entity) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		_, err = i.client.Index().
			Index(index).
			Id(entity.Slug()).
			BodyJson(entity).
			Refresh(i.refresh).
			Do(context.Background())
		if err == nil {
			return nil
		}

		zap.L().With(zap.Error(err), zap.String("index", index), zap.String("slug", entity.Slug()), zap.Int("attempt", attempt)).
			Error("ElasticCache: Failed to save entity")
		time.Sleep(i.retryWait)
	}

	return fmt.Errorf("save %s: %w: %v", entity.Slug(), ErrTooManyAttempts, err)
}

func (i index) BatchPersist() bool {
	actions := len(i.GetRequests())
	if actions < i.bulkCount {
		return false
	}

	start := time.Now()
	if _, err := i.Persist(); err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticCache: Failed to persist data")
		return false
	}

	zap.L().With(
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("actions", actions),
	).Info("ElasticCache: Persisting data")

	return true
}

// Persist flushes the buffer in bulk requests of at most bulkCount actions.
// Documents the bulk api rejects are saved one by one.
func (i index) Persist() (int, error) {
	total := 0
	bulk := i.client.Bulk()
	for _, r := range i.GetRequests() {
		if r.Type == IndexRequest {
			bulk.Add(elastic.NewBulkIndexRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		} else if r.Type == UpdateRequest {
			bulk.Add(elastic.NewBulkUpdateRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		}

		if bulk.NumberOfActions() >= i.bulkCount {
			total += bulk.NumberOfActions()
			if err := i.persist(bulk, 1); err != nil {
				return total, err
			}
			bulk = i.client.Bulk()
		}
	}

	if bulk.NumberOfActions() != 0 {
		total += bulk.NumberOfActions()
		if err := i.persist(bulk, 1); err != nil {
			return total, err
		}
	}

	zap.L().Debug("ElasticCache: Flushing ES cache")
	i.cache.Flush()

	return total, nil
}

func (i index) persist(bulk *elastic.BulkService, attempt int) error {
	zap.S().Debugf("ElasticCache: Persisting %d actions", bulk.NumberOfActions())

	response, err := bulk.Refresh(i.refresh).Do(context.Background())
	if err != nil {
		if attempt >= saveAttempts {
			return fmt.Errorf("bulk persist: %w: %v", ErrTooManyAttempts, err)
		}
		if elastic.IsStatusCode(err, 429) {
			zap.L().With(zap.Error(err)).Warn("ElasticCache: 429 (Too Many Requests)")
			time.Sleep(5 * i.retryWait)
		} else {
			time.Sleep(i.retryWait)
		}
		return i.persist(bulk, attempt+1)
	}

	for _, failed := range response.Failed() {
		zap.L().With(
			zap.Any("error", failed.Error),
			zap.String("index", failed.Index),
			zap.String("id", failed.Id),
		).Error("ElasticCache: Failed to persist request. Retying...")

		req := i.GetRequest(failed.Id)
		if req == nil {
			continue
		}
		if err := i.Save(failed.Index, req.Entity); err != nil {
			return err
		}
	}

	return nil
}
