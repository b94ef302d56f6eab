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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleParamsBlock is a realistic parameter snapshot: address 0, EPC
// Gen2, answer mode, RS232, 115200, antenna 1, FCC, power 26, Q 4.
func sampleParamsBlock() []byte {
	block := make([]byte, deviceParamsLen)
	block[4] = 5   // baud index
	block[6] = 1   // antenna mask
	block[7] = 2   // region
	block[14] = 50 // channel count
	block[15] = 26 // power
	block[17] = 4  // Q
	block[18] = 1  // session
	block[21] = 3  // filter time
	return block
}

func TestGetParams(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdGetParams, StatusOK, sampleParamsBlock())

	params, err := r.GetParams(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint8(26), params.Power)
	assert.Equal(t, uint8(4), params.QValue)
	assert.Equal(t, uint8(1), params.Session)
	assert.Equal(t, uint8(1), params.AntennaMask)
	assert.Equal(t, uint8(50), params.ChannelCount)
}

func TestGetParams_ShortBlock(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdGetParams, StatusOK, []byte{1, 2, 3})

	_, err := r.GetParams(context.Background())
	require.ErrorIs(t, err, ErrFrameCorrupted)
}

func TestUpdateParams_ReadModifyWrite(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdGetParams, StatusOK, sampleParamsBlock())

	err := r.UpdateParams(context.Background(), func(p *DeviceParams) {
		p.QValue = 8
	})
	require.NoError(t, err)

	require.Equal(t, 1, drv.CallCount(CmdSetParams))
	written := drv.LastArgs(CmdSetParams)
	require.Len(t, written, deviceParamsLen)

	// Only Q changed; every other byte round-tripped from the snapshot.
	want := sampleParamsBlock()
	want[17] = 8
	assert.Equal(t, want, written)
}

func TestUpdateParams_PausesRunningInventory(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()
	require.NoError(t, r.StartInventory(ctx))
	drv.SetResponse(CmdGetParams, StatusOK, sampleParamsBlock())
	drv.ResetCalls()

	require.NoError(t, r.UpdateParams(ctx, func(p *DeviceParams) { p.FilterTime = 9 }))

	assert.Equal(t,
		[]Command{CmdInventoryStop, CmdGetParams, CmdSetParams, CmdInventoryStart},
		drv.Calls())
	assert.Equal(t, StateRunning, r.State())
}

func TestSetQValue_Validation(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetQValue(ctx, -1), ErrInvalidParameter)
	require.ErrorIs(t, r.SetQValue(ctx, 16), ErrInvalidParameter)
	assert.Equal(t, 0, drv.CallCount(CmdSetQValue))

	require.NoError(t, r.SetQValue(ctx, 6))
	assert.Equal(t, []byte{6}, drv.LastArgs(CmdSetQValue))
}

func TestGetQValue_Direct(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdGetQValue, StatusOK, []byte{5})

	q, err := r.GetQValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, q)
	assert.Equal(t, 0, drv.CallCount(CmdGetParams))
}

func TestGetQValue_FallsBackToParams(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	// Firmware that rejects the direct query.
	drv.SetResponse(CmdGetQValue, StatusRespFormatErr, nil)
	drv.SetResponse(CmdGetParams, StatusOK, sampleParamsBlock())

	q, err := r.GetQValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, q)
	assert.Equal(t, 1, drv.CallCount(CmdGetParams))
}

func TestSetSession(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()
	drv.SetResponse(CmdGetParams, StatusOK, sampleParamsBlock())

	require.ErrorIs(t, r.SetSession(ctx, 4), ErrInvalidParameter)

	require.NoError(t, r.SetSession(ctx, 2))
	written := drv.LastArgs(CmdSetParams)
	require.Len(t, written, deviceParamsLen)
	assert.Equal(t, byte(2), written[18])
}

func TestGetFrequency(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	// FCC plan: 902.0-928.0 MHz in 0.5 MHz steps, 52 channels.
	drv.SetResponse(CmdGetFrequency, StatusOK, []byte{
		0x01,
		0x3C, 0x23, // 9020
		0x40, 0x24, // 9280
		0x05, 0x00, // 5
		52,
	})

	plan, err := r.GetFrequency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RegionFCC, plan.Region)
	assert.Equal(t, uint16(9020), plan.StartFreq)
	assert.Equal(t, uint16(9280), plan.StopFreq)
	assert.Equal(t, uint16(5), plan.StepFreq)
	assert.Equal(t, uint8(52), plan.ChannelCount)
}

func TestGetFrequency_ShortPayload(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	drv.SetResponse(CmdGetFrequency, StatusOK, []byte{0x01, 0x48})

	_, err := r.GetFrequency(context.Background())
	require.ErrorIs(t, err, ErrFrameCorrupted)
}

func TestSetFrequency_WireArgs(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)

	err := r.SetFrequency(context.Background(), FrequencyPlan{
		Region:    RegionETSI,
		StartFreq: 8650,
		StopFreq:  8680,
		StepFreq:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x02,
		0xCA, 0x21,
		0xE8, 0x21,
		0x02, 0x00,
		0x00,
	}, drv.LastArgs(CmdSetFrequency))
}

func TestSetFrequency_Validation(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetFrequency(ctx, FrequencyPlan{Region: 0x09}),
		ErrInvalidParameter)
	require.ErrorIs(t, r.SetFrequency(ctx, FrequencyPlan{
		Region:    RegionFCC,
		StartFreq: 9280,
		StopFreq:  9020,
	}), ErrInvalidParameter)
	assert.Equal(t, 0, drv.CallCount(CmdSetFrequency))
}

func TestSetFrequency_PausesRunningInventory(t *testing.T) {
	t.Parallel()

	r, drv := newTestReader(t)
	ctx := context.Background()

	require.NoError(t, r.StartInventory(ctx))
	require.NoError(t, r.SetFrequency(ctx, FrequencyPlan{Region: RegionChina}))

	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, []Command{
		CmdInventoryStart,
		CmdInventoryStop,
		CmdSetFrequency,
		CmdInventoryStart,
	}, drv.Calls())
}
