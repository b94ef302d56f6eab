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

//go:build deadlock

// Deadlock-detecting variant, selected with -tags=deadlock.
package syncutil

import "github.com/sasha-s/go-deadlock"

// Mutex is deadlock.Mutex in deadlock builds.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is deadlock.RWMutex in deadlock builds.
type RWMutex struct {
	deadlock.RWMutex
}
