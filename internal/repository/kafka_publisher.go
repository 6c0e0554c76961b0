package repository

import (
	"context"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	pkgkafka "FolioFeed/pkg/kafka"
)

// KafkaArticlePublisher emits each newly stored article keyed by its most
// relevant symbol.
type KafkaArticlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ repository.ArticlePublisher = (*KafkaArticlePublisher)(nil)

func NewKafkaArticlePublisher(producer *pkgkafka.Producer, topic string) *KafkaArticlePublisher {
	return &KafkaArticlePublisher{producer: producer, topic: topic}
}

func (p *KafkaArticlePublisher) PublishArticles(ctx context.Context, articles []models.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(articles))
	for i, a := range articles {
		var key []byte
		if len(a.RelatedSymbols) > 0 {
			key = []byte(a.RelatedSymbols[0].Symbol)
		}
		msgs[i] = pkgkafka.Message{Key: key, Value: a}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared with the log collector and closed
// by whoever built it.
func (p *KafkaArticlePublisher) Close() error { return nil }

// NopArticlePublisher drops everything. Used when no broker is configured.
type NopArticlePublisher struct{}

func (NopArticlePublisher) PublishArticles(ctx context.Context, articles []models.NewsArticle) error {
	return nil
}

func (NopArticlePublisher) Close() error { return nil }
