// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
)

func TestDefaultInstaller_DetectAbsentBinary(t *testing.T) {
	d := &DefaultInstaller{Binary: "definitely-not-a-broker-binary"}

	info, err := d.Detect(context.Background())
	require.NoError(t, err, "absence is a result, not an error")
	assert.False(t, info.Installed)
	assert.Empty(t, info.Path)
}

func TestDefaultInstaller_InstallIsGuidanceOnly(t *testing.T) {
	logger := logging.New(logging.Config{Quiet: true})
	defer logger.Close()
	d := &DefaultInstaller{Binary: "mosquitto", Logger: logger}

	err := d.Install(context.Background())
	require.Error(t, err, "nothing is installed on the operator's behalf")
	assert.Contains(t, err.Error(), "not supported")
	assert.Contains(t, err.Error(), "mosquitto")
}

func TestDefaultInstaller_InstallNilLogger(t *testing.T) {
	d := &DefaultInstaller{Binary: "mosquitto"}
	assert.Error(t, d.Install(context.Background()))
}

func TestMockInstaller_RecordsBothMethods(t *testing.T) {
	m := &MockInstaller{}

	info, err := m.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Installed)
	require.NoError(t, m.Install(context.Background()))

	assert.Equal(t, 1, m.CallCount("Detect"))
	assert.Equal(t, 1, m.CallCount("Install"))
}
