// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventsink

import (
	"context"
	"fmt"
)

// kafkaProducer abstracts the minimal surface a Kafka client needs to
// expose; no broker dependency is wired into go.mod for this build, so
// the only implementation is a logging stand-in (the same approach the
// teacher's persistence package takes for its own Kafka adapter).
type kafkaProducer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

type loggingKafkaProducer struct{}

func (loggingKafkaProducer) Produce(ctx context.Context, topic string, key, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[eventsink-kafka] topic=%s key=%s value=%s\n", topic, key, value)
	return nil
}

type kafkaSink struct {
	producer kafkaProducer
	topic    string
}

func newKafkaSink(brokers, topic string) Sink {
	return &kafkaSink{producer: loggingKafkaProducer{}, topic: topic}
}

func (s *kafkaSink) Publish(ctx context.Context, event DerivedViewEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return s.producer.Produce(ctx, s.topic, []byte(event.Kind), payload)
}

func (s *kafkaSink) Close() error { return nil }
