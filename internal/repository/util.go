package repository

import (
	"context"
	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
	"time"
)

var tooManyRequestsWait = 5 * time.Second

func search(searchService *elastic.SearchService) (*elastic.SearchResult, error) {
	for {
		result, err := searchService.Do(context.Background())
		if err == nil || !elastic.IsStatusCode(err, 429) {
			return result, err
		}

		zap.L().Warn("Elastic: 429 (Too Many Requests)")
		time.Sleep(tooManyRequestsWait)
	}
}
