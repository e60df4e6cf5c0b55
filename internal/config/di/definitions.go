package di

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/billing"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/daemon"
	"github.com/ZilDuck/membership-market/internal/elastic_search"
	"github.com/ZilDuck/membership-market/internal/messenger"
	"github.com/ZilDuck/membership-market/internal/repository"
	"github.com/ZilDuck/membership-market/internal/zilliqa"
	"github.com/sarulabs/di/v2"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			return elastic_search.New()
		},
	},
	{
		Name: "zilliqa",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get().Zilliqa
			client, err := zilliqa.NewClient(cfg.Url, cfg.Timeout, cfg.Debug)
			if err != nil {
				return nil, err
			}
			return zilliqa.NewZilliqaService(zilliqa.NewProvider(client)), nil
		},
	},
	{
		Name: "registry",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			if cfg.Registry.IsZero() || cfg.Owner.IsZero() {
				return nil, fmt.Errorf("REGISTRY_ADDRESS and OWNER_ADDRESS are required")
			}
			return zilliqa.NewRegistry(ctn.Get("zilliqa").(zilliqa.Service), cfg.Registry, cfg.Owner), nil
		},
	},
	{
		Name: "runRepository",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get().Billing
			switch cfg.Store {
			case config.ElasticStore:
				return repository.NewBillingRunRepository(ctn.Get("elastic").(elastic_search.Index)), nil
			case config.FileStore:
				return repository.NewFileBillingRunRepository(cfg.RunLogDir), nil
			}
			return nil, fmt.Errorf("unknown billing store %q", cfg.Store)
		},
	},
	{
		Name: "scheduler",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			return billing.NewScheduler(
				ctn.Get("registry").(billing.Registry),
				ctn.Get("runRepository").(repository.BillingRunRepository),
				billing.Config{
					Period:      cfg.Billing.Period,
					RetryDelay:  cfg.Billing.RetryDelay,
					Concurrency: cfg.Billing.Concurrency,
					Exempt:      cfg.Exempt(),
				},
			), nil
		},
	},
	{
		Name: "daemon",
		Build: func(ctn di.Container) (interface{}, error) {
			return daemon.NewDaemon(ctn.Get("scheduler").(*billing.Scheduler), config.Get().Billing.Interval), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get().Aws
			client, err := messenger.NewSqsClient(cfg)
			if err != nil {
				return nil, err
			}
			return messenger.NewMessenger(client, cfg.QueueUrl), nil
		},
	},
}

// Container hands out the services of a binary, built on first use.
type Container struct {
	di.Container
}

func NewContainer(defs ...di.Def) (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		return nil, err
	}
	// same name definitions replace the defaults
	if err := builder.Add(defs...); err != nil {
		return nil, err
	}

	return &Container{builder.Build()}, nil
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetZilliqa() zilliqa.Service {
	return c.Get("zilliqa").(zilliqa.Service)
}

func (c *Container) GetRegistry() billing.Registry {
	return c.Get("registry").(billing.Registry)
}

func (c *Container) GetRunRepository() repository.BillingRunRepository {
	return c.Get("runRepository").(repository.BillingRunRepository)
}

func (c *Container) GetScheduler() *billing.Scheduler {
	return c.Get("scheduler").(*billing.Scheduler)
}

func (c *Container) GetDaemon() *daemon.Daemon {
	return c.Get("daemon").(*daemon.Daemon)
}

func (c *Container) GetMessenger() messenger.MessageService {
	return c.Get("messenger").(messenger.MessageService)
}
