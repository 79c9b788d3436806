// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/graindispatch/errors"
)

func TestManager(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.Register(1, "1.4.0", BackwardCompatible))
	require.NoError(t, manager.Register(2, "2.0.0", Strict))
	require.NoError(t, manager.Register(3, "0.1.0", AllVersions))

	current, ok := manager.CurrentVersion(1)
	require.True(t, ok)
	assert.Equal(t, "1.4.0", current)
	_, ok = manager.CurrentVersion(99)
	assert.False(t, ok)

	testCases := []struct {
		name        string
		interfaceID int32
		requested   string
		compatible  bool
	}{
		{"no requirement", 1, "", true},
		{"unknown interface", 99, "9.9.9", true},
		{"older minor", 1, "1.2.0", true},
		{"same version", 1, "1.4.0", true},
		{"newer minor", 1, "1.5.0", false},
		{"other major", 1, "2.0.0", false},
		{"strict equal", 2, "2.0.0", true},
		{"strict older", 2, "1.9.0", false},
		{"all versions", 3, "7.0.0", true},
		{"constraint satisfied", 1, "^1.2", true},
		{"constraint violated", 1, ">= 2.0", false},
		{"garbage", 1, "not a version", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.compatible, manager.IsCompatible(tc.interfaceID, tc.requested))
		})
	}

	require.ErrorIs(t, manager.Check(1, "2.0.0"), gerrors.ErrIncompatibleVersion)
}

func TestRegisterErrors(t *testing.T) {
	manager := NewManager()
	require.Error(t, manager.Register(1, "x.y", Strict))
	require.Error(t, manager.Register(1, "1.0.0", Strategy(9)))
	assert.Equal(t, "Unknown", Strategy(9).String())
	assert.Equal(t, "Strict", Strict.String())
}
