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

// Package cf591 controls CHAFON CF591-class UHF RFID readers over serial
// or TCP links.
//
// The package centers on the Reader type: a session with one device,
// offering inventory control (start, stop, poll, one-shot and streaming
// reads with debouncing), tag memory access, device configuration and
// peripheral control (buzzer, relay, antenna). Transport backends live in
// the transport/serial and transport/tcp subpackages; background
// callback-driven monitoring lives in polling; hardware trigger input in
// trigger.
//
// A minimal read:
//
//	drv := serial.New()
//	r, err := cf591.New(drv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := r.Connect(ctx, "/dev/ttyUSB0"); err != nil {
//		log.Fatal(err)
//	}
//	defer r.Disconnect()
//
//	det, err := r.ReadSingle(ctx, 5*time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if det == nil {
//		fmt.Println("no tag")
//	} else {
//		fmt.Println(det.EPCHex())
//	}
//
// Absence of a tag is never an error: polls and one-shot reads return nil
// detections on timeout. Errors are reserved for connection loss, device
// faults and invalid parameters; see IsRetryable and IsFatal for
// classification.
package cf591
