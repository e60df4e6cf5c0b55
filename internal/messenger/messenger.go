package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"go.uber.org/zap"
	"time"
)

type MessageService interface {
	SendMessage(item Item, body []byte) error
	PollMessages(ctx context.Context, item Item, messages chan<- *sqs.Message) error
	DeleteMessage(item Item, message *sqs.Message) error
}

type Messenger struct {
	client   sqsiface.SQSAPI
	queueUrl string
	wait     int64
}

type Item string

var (
	BillingRunCompleted Item = "billing.run.completed"
)

const itemAttribute = "item"

var ErrNoQueue = errors.New("no queue configured")

func NewMessenger(client sqsiface.SQSAPI, queueUrl string) MessageService {
	return &Messenger{client: client, queueUrl: queueUrl, wait: 20}
}

func NewSqsClient(cfg config.AwsConfig) (sqsiface.SQSAPI, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, cfg.Token),
	})
	if err != nil {
		return nil, err
	}

	return sqs.New(sess), nil
}

func (m *Messenger) SendMessage(item Item, body []byte) error {
	if m.queueUrl == "" {
		return ErrNoQueue
	}

	out, err := m.client.SendMessage(&sqs.SendMessageInput{
		QueueUrl:    aws.String(m.queueUrl),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]*sqs.MessageAttributeValue{
			itemAttribute: {DataType: aws.String("String"), StringValue: aws.String(string(item))},
		},
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("item", string(item))).Error("[Queue] Failed to publish message")
		return err
	}

	zap.L().With(zap.String("item", string(item)), zap.String("id", aws.StringValue(out.MessageId))).Info("[Queue] Published message")
	return nil
}

// PollMessages long polls the queue and forwards messages of the given item
// until ctx is done. The channel is closed on return. Messages of other
// items are left for their own subscribers.
func (m *Messenger) PollMessages(ctx context.Context, item Item, messages chan<- *sqs.Message) error {
	defer close(messages)
	if m.queueUrl == "" {
		return ErrNoQueue
	}

	for ctx.Err() == nil {
		out, err := m.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(m.queueUrl),
			MaxNumberOfMessages:   aws.Int64(10),
			WaitTimeSeconds:       aws.Int64(m.wait),
			MessageAttributeNames: []*string{aws.String(sqs.QueueAttributeNameAll)},
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			zap.L().With(zap.Error(err)).Error("[Queue] Failed to receive messages")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, message := range out.Messages {
			if itemOf(message) != item {
				continue
			}
			zap.L().Debug("[Queue] Received message")
			select {
			case messages <- message:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return ctx.Err()
}

func (m *Messenger) DeleteMessage(item Item, message *sqs.Message) error {
	_, err := m.client.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      aws.String(m.queueUrl),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("item", string(item))).Error("[Queue] Failed to delete message")
	}
	return err
}

func itemOf(message *sqs.Message) Item {
	if attr, ok := message.MessageAttributes[itemAttribute]; ok && attr != nil {
		return Item(aws.StringValue(attr.StringValue))
	}
	return ""
}

func PublishRun(service MessageService, run entity.BillingRun) error {
	body, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return service.SendMessage(BillingRunCompleted, body)
}

func DecodeRun(message *sqs.Message) (entity.BillingRun, error) {
	var run entity.BillingRun
	err := json.Unmarshal([]byte(aws.StringValue(message.Body)), &run)
	return run, err
}
