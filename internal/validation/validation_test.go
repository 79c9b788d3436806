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

package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type validationTestSuite struct {
	suite.Suite
}

func TestValidation(t *testing.T) {
	suite.Run(t, new(validationTestSuite))
}

func (s *validationTestSuite) TestNewChain() {
	s.Run("without option", func() {
		chain := New()
		s.Assert().NotNil(chain)
		s.Assert().False(chain.failFast)
	})
	s.Run("with options", func() {
		s.Assert().True(New(FailFast()).failFast)
		s.Assert().False(New(AllErrors()).failFast)
	})
}

func (s *validationTestSuite) TestValidate() {
	s.Run("single validator", func() {
		err := New().AddValidator(NewEmptyStringValidator("field", "")).Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("fail fast stops at first violation", func() {
		err := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("all errors are collected", func() {
		err := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		s.Assert().EqualError(err, "the [field] is required; this is false")
	})
}

func (s *validationTestSuite) TestPatternValidator() {
	custom := errors.New("bad name")
	s.Assert().NoError(NewPatternValidator("^[a-z]+$", "grain", nil).Validate())
	s.Assert().EqualError(NewPatternValidator("^[a-z]+$", "Grain-1", nil).Validate(), "invalid expression")
	s.Assert().ErrorIs(NewPatternValidator("^[a-z]+$", "Grain-1", custom).Validate(), custom)
}

func (s *validationTestSuite) TestTCPAddressValidator() {
	s.Assert().NoError(NewTCPAddressValidator("127.0.0.1:3000").Validate())
	s.Assert().Error(NewTCPAddressValidator("127.0.0.1").Validate())
	s.Assert().Error(NewTCPAddressValidator(":3000").Validate())
	s.Assert().Error(NewTCPAddressValidator("127.0.0.1:70000").Validate())
	s.Assert().Error(NewTCPAddressValidator("127.0.0.1:port").Validate())
}

func (s *validationTestSuite) TestDurationValidators() {
	s.Assert().NoError(NewPositiveDurationValidator("timeout", time.Second).Validate())
	s.Assert().Error(NewPositiveDurationValidator("timeout", 0).Validate())
	s.Assert().Error(NewPositiveDurationValidator("timeout", -time.Second).Validate())
	s.Assert().NoError(NewNonZeroDurationValidator("idle", -1).Validate())
	s.Assert().Error(NewNonZeroDurationValidator("idle", 0).Validate())
}
