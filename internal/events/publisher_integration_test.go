//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"certledger/internal/ledger"
	"certledger/pkg/testutil/containers"
)

func TestKafkaPublisherIntegration(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	const topic = "certificate-events"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	admin, err := kgo.NewClient(kgo.SeedBrokers(broker.Broker))
	require.NoError(t, err)
	defer admin.Close()

	_, err = kadm.NewClient(admin).CreateTopic(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	publisher, err := NewKafkaPublisher([]string{broker.Broker}, topic)
	require.NoError(t, err)
	defer publisher.Close()

	issued := ledger.Event{
		Action:        ledger.OpIssue,
		CertificateID: "cert-int-1",
		TxID:          "tx-1",
		BlockSeq:      1,
		At:            time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.Publish(ctx, issued))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "cert-int-1", string(records[0].Key))

	var got ledger.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, issued, got)
}
