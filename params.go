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

package cf591

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// Q value limits for the Gen2 anti-collision algorithm.
const (
	MinQValue = 0
	MaxQValue = 15
)

// deviceParamsLen is the size of the device parameter block on the wire.
const deviceParamsLen = 25

// DeviceParams is the device's full configuration block. The wire protocol
// has no partial-field set: even a one-field change is a read-modify-write
// of the whole block, which is what UpdateParams does.
//
// Frequency fields are kept as raw byte pairs; their packing is region
// dependent and the controller never interprets them, only round-trips.
type DeviceParams struct {
	DeviceAddr    uint8
	Protocol      uint8
	WorkMode      uint8
	Interface     uint8
	Baud          uint8
	Wiegand       uint8
	AntennaMask   uint8
	Region        uint8
	StartFreqI    [2]byte
	StartFreqD    [2]byte
	StepFreq      [2]byte
	ChannelCount  uint8
	Power         uint8
	InventoryArea uint8
	QValue        uint8
	Session       uint8
	AccessAddr    uint8
	AccessLen     uint8
	FilterTime    uint8
	TriggerTime   uint8
	BuzzerTime    uint8
	InternalTime  uint8
}

// encode packs the block into its wire form.
func (p *DeviceParams) encode() []byte {
	buf := make([]byte, deviceParamsLen)
	buf[0] = p.DeviceAddr
	buf[1] = p.Protocol
	buf[2] = p.WorkMode
	buf[3] = p.Interface
	buf[4] = p.Baud
	buf[5] = p.Wiegand
	buf[6] = p.AntennaMask
	buf[7] = p.Region
	copy(buf[8:10], p.StartFreqI[:])
	copy(buf[10:12], p.StartFreqD[:])
	copy(buf[12:14], p.StepFreq[:])
	buf[14] = p.ChannelCount
	buf[15] = p.Power
	buf[16] = p.InventoryArea
	buf[17] = p.QValue
	buf[18] = p.Session
	buf[19] = p.AccessAddr
	buf[20] = p.AccessLen
	buf[21] = p.FilterTime
	buf[22] = p.TriggerTime
	buf[23] = p.BuzzerTime
	buf[24] = p.InternalTime
	return buf
}

func decodeDeviceParams(payload []byte) (*DeviceParams, error) {
	if len(payload) < deviceParamsLen {
		return nil, fmt.Errorf("%w: parameter block too short (%d bytes)",
			ErrFrameCorrupted, len(payload))
	}
	p := &DeviceParams{
		DeviceAddr:    payload[0],
		Protocol:      payload[1],
		WorkMode:      payload[2],
		Interface:     payload[3],
		Baud:          payload[4],
		Wiegand:       payload[5],
		AntennaMask:   payload[6],
		Region:        payload[7],
		ChannelCount:  payload[14],
		Power:         payload[15],
		InventoryArea: payload[16],
		QValue:        payload[17],
		Session:       payload[18],
		AccessAddr:    payload[19],
		AccessLen:     payload[20],
		FilterTime:    payload[21],
		TriggerTime:   payload[22],
		BuzzerTime:    payload[23],
		InternalTime:  payload[24],
	}
	copy(p.StartFreqI[:], payload[8:10])
	copy(p.StartFreqD[:], payload[10:12])
	copy(p.StepFreq[:], payload[12:14])
	return p, nil
}

// GetParams reads the full device parameter block. Inventory is paused for
// the exchange.
func (r *Reader) GetParams(ctx context.Context) (*DeviceParams, error) {
	var params *DeviceParams
	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, err := r.command(ctx, CmdGetParams, nil)
		if err != nil {
			return err
		}
		params, err = decodeDeviceParams(payload)
		return err
	})
	return params, err
}

// UpdateParams applies mutate to a freshly fetched parameter snapshot and
// writes the whole block back. This is the only way to change any
// parameter-block field; there is no partial set at the wire level.
func (r *Reader) UpdateParams(ctx context.Context, mutate func(*DeviceParams)) error {
	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, err := r.command(ctx, CmdGetParams, nil)
		if err != nil {
			return err
		}
		params, err := decodeDeviceParams(payload)
		if err != nil {
			return err
		}
		mutate(params)
		_, err = r.command(ctx, CmdSetParams, params.encode())
		return err
	})
}

// SetQValue sets the anti-collision Q value. Lower values favor small tag
// populations, higher values large ones.
func (r *Reader) SetQValue(ctx context.Context, q int) error {
	if q < MinQValue || q > MaxQValue {
		return fmt.Errorf("%w: Q value %d outside [%d, %d]",
			ErrInvalidParameter, q, MinQValue, MaxQValue)
	}
	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, err := r.command(ctx, CmdSetQValue, []byte{byte(q)})
		return err
	})
}

// GetQValue reads the anti-collision Q value. Some firmware rejects the
// direct query; those fall back to the parameter block.
func (r *Reader) GetQValue(ctx context.Context) (int, error) {
	var q int
	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, err := r.command(ctx, CmdGetQValue, nil)
		if err == nil && len(payload) >= 1 {
			q = int(payload[0])
			return nil
		}
		var ce *CommandError
		if err != nil && !errors.As(err, &ce) {
			return err
		}
		// Direct query refused; the parameter block always carries Q.
		payload, err = r.command(ctx, CmdGetParams, nil)
		if err != nil {
			return err
		}
		params, err := decodeDeviceParams(payload)
		if err != nil {
			return err
		}
		q = int(params.QValue)
		return nil
	})
	return q, err
}

// Regulatory frequency regions.
const (
	RegionFCC   uint8 = 0x01 // US, 902-928 MHz
	RegionETSI  uint8 = 0x02 // EU, 865-868 MHz
	RegionChina uint8 = 0x03 // 920-925 MHz
	RegionKorea uint8 = 0x04
	RegionJapan uint8 = 0x05
	RegionOpen  uint8 = 0x06 // custom plan
)

// freqPlanLen is the size of the frequency plan on the wire.
const freqPlanLen = 8

// FrequencyPlan is the reader's RF channel plan. Frequencies are in
// 0.1 MHz units, so 902 MHz is 9020. ChannelCount is reported by the
// device and ignored on set.
type FrequencyPlan struct {
	Region       uint8
	StartFreq    uint16
	StopFreq     uint16
	StepFreq     uint16
	ChannelCount uint8
}

func (f *FrequencyPlan) encode() []byte {
	buf := make([]byte, freqPlanLen)
	buf[0] = f.Region
	binary.LittleEndian.PutUint16(buf[1:3], f.StartFreq)
	binary.LittleEndian.PutUint16(buf[3:5], f.StopFreq)
	binary.LittleEndian.PutUint16(buf[5:7], f.StepFreq)
	buf[7] = f.ChannelCount
	return buf
}

func decodeFrequencyPlan(payload []byte) (*FrequencyPlan, error) {
	if len(payload) < freqPlanLen {
		return nil, fmt.Errorf("%w: frequency plan too short (%d bytes)",
			ErrFrameCorrupted, len(payload))
	}
	return &FrequencyPlan{
		Region:       payload[0],
		StartFreq:    binary.LittleEndian.Uint16(payload[1:3]),
		StopFreq:     binary.LittleEndian.Uint16(payload[3:5]),
		StepFreq:     binary.LittleEndian.Uint16(payload[5:7]),
		ChannelCount: payload[7],
	}, nil
}

// GetFrequency reads the active frequency plan. Inventory is paused for
// the exchange.
func (r *Reader) GetFrequency(ctx context.Context) (*FrequencyPlan, error) {
	var plan *FrequencyPlan
	err := r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		payload, err := r.command(ctx, CmdGetFrequency, nil)
		if err != nil {
			return err
		}
		plan, err = decodeFrequencyPlan(payload)
		return err
	})
	return plan, err
}

// SetFrequency writes a frequency plan. The region alone is enough for
// the standard regulatory plans; start, stop, and step override the
// region's defaults when non-zero.
func (r *Reader) SetFrequency(ctx context.Context, plan FrequencyPlan) error {
	if plan.Region < RegionFCC || plan.Region > RegionOpen {
		return fmt.Errorf("%w: region 0x%02X", ErrInvalidParameter, plan.Region)
	}
	if plan.StopFreq != 0 && plan.StopFreq < plan.StartFreq {
		return fmt.Errorf("%w: stop frequency %d below start %d",
			ErrInvalidParameter, plan.StopFreq, plan.StartFreq)
	}
	return r.WithInventoryPaused(ctx, func(ctx context.Context) error {
		_, err := r.command(ctx, CmdSetFrequency, plan.encode())
		return err
	})
}

// SetSession sets the Gen2 session flag via the parameter block.
func (r *Reader) SetSession(ctx context.Context, session uint8) error {
	if session > 3 {
		return fmt.Errorf("%w: session %d outside [0, 3]", ErrInvalidParameter, session)
	}
	return r.UpdateParams(ctx, func(p *DeviceParams) {
		p.Session = session
	})
}
