// Copyright 2026 The go-cf591 Contributors.
// SPDX-License-Identifier: Apache-2.0
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

//go:build !deadlock

// Package syncutil selects between plain sync mutexes and
// github.com/sasha-s/go-deadlock at build time. Normal builds pay zero
// overhead; `go test -tags=deadlock ./...` turns every lock in the module
// into a watchdogged one.
package syncutil

import "sync"

// Mutex is sync.Mutex in normal builds.
type Mutex struct {
	sync.Mutex
}

// RWMutex is sync.RWMutex in normal builds.
type RWMutex struct {
	sync.RWMutex
}
