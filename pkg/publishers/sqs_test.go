package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherPublishSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   client,
		log:      discardLogger{},
	}

	evt := NewEvent("list-users", "GET", "/users", OutcomeSome)
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["outcome"]
	if !ok || aws.ToString(attr.StringValue) != "some" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("outcome attribute missing or wrong: %#v", attr)
	}
	if name := client.input.MessageAttributes["call_name"]; aws.ToString(name.StringValue) != "list-users" {
		t.Fatalf("call_name attribute = %#v", name)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"id":"`+evt.ID+`"`) {
		t.Fatalf("MessageBody missing event id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherPublishError(t *testing.T) {
	pub := &sqsPublisher{
		id:       "queue",
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      discardLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent("", "GET", "/x", OutcomeError)); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
