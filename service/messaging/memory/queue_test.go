package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stageUpdate struct {
	Stage string
	State string
	Seq   int
}

func TestQueue(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[stageUpdate](config)

	ctx := context.Background()
	payload := stageUpdate{
		Stage: "Delivery",
		State: "opened",
		Seq:   1,
	}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())

	msgData := message.T()
	assert.Equal(t, payload.Stage, msgData.Stage)
	assert.Equal(t, payload.State, msgData.State)
	assert.Equal(t, payload.Seq, msgData.Seq)

	err = message.Ack()
	assert.NoError(t, err)

	// a second ack on the same message must fail
	err = message.Ack()
	assert.Error(t, err)
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[stageUpdate](config)

	ctx := context.Background()
	payload := stageUpdate{Stage: "Pickup", State: "closed"}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)

	// first delivery plus two retries
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, message)
		assert.Equal(t, payload.Stage, message.T().Stage)

		err = message.Nack(fmt.Errorf("downstream unavailable"))
		assert.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	// the retry budget is spent, the message moved to the dead letter list
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueueNackWithoutDeadLetter(t *testing.T) {
	config := Config{MaxRetries: 0, RetryDelay: time.Millisecond, DeadLetter: false, QueueBuffer: 4}
	queue := NewQueue[stageUpdate](config)

	ctx := context.Background()
	payload := stageUpdate{Stage: "Pickup"}
	assert.NoError(t, queue.Publish(ctx, &payload))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(fmt.Errorf("boom")))
	time.Sleep(10 * time.Millisecond)

	// the message is dropped, neither requeued nor parked
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 0, queue.DLQSize())

	// nack after the message was settled must fail
	assert.Error(t, message.Nack(fmt.Errorf("boom")))
}

func TestQueueConcurrency(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[stageUpdate](config)

	ctx := context.Background()
	concurrency := 8
	messagesPerProducer := 10

	var wg sync.WaitGroup
	wg.Add(concurrency * 2)

	var consumedCount int
	var consumedMu sync.Mutex

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				message, err := queue.Consume(ctx)
				if err != nil {
					t.Errorf("consume: %v", err)
					continue
				}
				assert.NoError(t, message.Ack())
				consumedMu.Lock()
				consumedCount++
				consumedMu.Unlock()
			}
		}()
	}

	for i := 0; i < concurrency; i++ {
		go func(producerID int) {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				payload := stageUpdate{
					Stage: fmt.Sprintf("stage-%d", producerID),
					Seq:   j,
				}
				if err := queue.Publish(ctx, &payload); err != nil {
					t.Errorf("publish: %v", err)
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("test timed out")
	}

	assert.Equal(t, concurrency*messagesPerProducer, consumedCount)
	assert.Equal(t, 0, queue.Size())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[stageUpdate](DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Consume on an empty queue must unblock when the context expires
	_, err := queue.Consume(ctx)
	assert.Error(t, err)

	// the queue stays usable afterwards
	payload := stageUpdate{Stage: "Delivery"}
	assert.NoError(t, queue.Publish(context.Background(), &payload))
	message, err := queue.Consume(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, message)
}
