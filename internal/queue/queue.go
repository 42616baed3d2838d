// Package queue is the background analysis-request consumer/worker pool,
// generalized from the teacher's consume.go/helpers.go: a RabbitMQ queue of
// (user_id, job_id) requests, a fixed pool of goroutines each
// running the pipeline synchronously per message, and a status broadcaster
// publishing to a per-request routing key.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/jobmatch/careerengine/internal/careerengine"
)

const requestQueueName = "analysis_requests"

// AnalysisRequest is one message on the analysis_requests queue: a single
// (user, job) pair to run through the Orchestrator, plus any policy
// overrides the requester supplied.
type AnalysisRequest struct {
	UserID    uuid.UUID      `json:"user_id"`
	JobID     uuid.UUID      `json:"job_id"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// Config bundles the dependencies StartConsumerWorkerPool needs, mirroring
// the teacher's WorkerConfig.
type Config struct {
	Orchestrator *careerengine.Orchestrator
	RabbitMQUrl  string
	RabbitConn   *amqp.Connection
}

// StartConsumerWorkerPool starts numWorkers goroutines, each independently
// dialing RabbitMQ and consuming from the shared queue, exactly the teacher's
// StartConsumerWorkerPool shape.
func (c *Config) StartConsumerWorkerPool(numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		log.Println("worker id", i+1, "started")
		go c.worker(i, &wg)
	}
	wg.Wait()
}

func (c *Config) worker(id int, wg *sync.WaitGroup) {
	defer wg.Done()

	conn, err := amqp.Dial(c.RabbitMQUrl)
	if err != nil {
		log.Fatal("error dialling rabbitmq: " + err.Error())
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("error connecting to rabbitmq channel: " + err.Error())
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		requestQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	msgs, err := ch.Consume(
		requestQueueName,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatal("error consuming rabbitmq message: " + err.Error())
	}

	for msg := range msgs {
		var req AnalysisRequest
		if err := json.Unmarshal(msg.Body, &req); err != nil {
			log.Printf("⚠️ error unmarshalling analysis request. err: %v", err)
			continue
		}

		log.Printf("worker %d processing analysis. user_id=%s job_id=%s", id+1, req.UserID, req.JobID)
		c.publishStatus(req.UserID, req.JobID, "processing", "analysis started")

		_, err := c.Orchestrator.Run(context.Background(), req.UserID, req.JobID, req.Overrides)
		if err != nil {
			log.Printf("⚠️ error running analysis for user_id=%s job_id=%s. err: %v", req.UserID, req.JobID, err)
			c.publishStatus(req.UserID, req.JobID, "failed", "analysis failed")
			continue
		}

		c.publishStatus(req.UserID, req.JobID, "completed", "analysis completed")
	}
}

// publishStatus mirrors the teacher's publishSessionUpdate, generalized from
// a session.<id> routing key to a report.<user_id>.<job_id> one so multiple
// analyses in flight for the same user don't collide.
func (c *Config) publishStatus(userID, jobID uuid.UUID, status, message string) {
	update := map[string]any{
		"user_id":   userID,
		"job_id":    jobID,
		"status":    status,
		"message":   message,
		"timestamp": time.Now(),
	}
	if err := c.publish(userID, jobID, update); err != nil {
		log.Println("failed to publish update:", err)
	}
}

func (c *Config) publish(userID, jobID uuid.UUID, update map[string]any) error {
	ch, err := c.RabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	routingKey := fmt.Sprintf("report.%s.%s", userID, jobID)

	return ch.Publish(
		"report_updates", // exchange
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
