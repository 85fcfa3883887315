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

	redis "github.com/redis/go-redis/v9"
)

// redisChannel is the single pub/sub channel every derived-view event
// is broadcast on; subscribers discriminate by the event's Kind field.
const redisChannel = "hlgateway:derived-views"

type redisSink struct {
	client *redis.Client
}

func newRedisSink(addr string) (Sink, error) {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisSink{client: client}, nil
}

func (s *redisSink) Publish(ctx context.Context, event DerivedViewEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, redisChannel, payload).Err()
}

func (s *redisSink) Close() error {
	return s.client.Close()
}
