package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeWalletNotLoaded, "wallet not loaded")
	suite.NotNil(err)
	suite.Equal(ErrCodeWalletNotLoaded, err.Code)
	suite.Equal("wallet not loaded", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeStrategyNotFound, "no strategy registered as %q", "sma-crossover")
	suite.NotNil(err)
	suite.Equal(ErrCodeStrategyNotFound, err.Code)
	suite.Equal(`no strategy registered as "sma-crossover"`, err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLedgerQueryFailed, "failed to read unsettled orders", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeLedgerQueryFailed, err.Code)
	suite.Equal("failed to read unsettled orders", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodePoolNotFound, cause, "no pool matching %s", "pool-1")
	suite.Equal(ErrCodePoolNotFound, err.Code)
	suite.Equal("no pool matching pool-1", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeWalletNotLoaded, "wallet not loaded")
	suite.Equal("[200] wallet not loaded", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeFeedConnectFailed, "failed to connect", cause)
	suite.Equal("[600] failed to connect: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLedgerQueryFailed, "query failed", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeAmountNotPositive, "amount must be positive")
	suite.Equal(ErrCodeAmountNotPositive, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodePoolNotFound, "pool not found")
	err := Wrap(ErrCodeSweepCancelFailed, "cancel failed", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeSweepCancelFailed, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromForeignError() {
	err := errors.New("standard error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeAmountExceedsFunds, "amount larger than balance")
	suite.True(HasCode(err, ErrCodeAmountExceedsFunds))
	suite.False(HasCode(err, ErrCodeWalletNotLoaded))
}

func (suite *ErrorTestSuite) TestIsFatalBoot() {
	suite.True(IsFatalBoot(New(ErrCodeInvalidFeedHost, "bad scheme")))
	suite.True(IsFatalBoot(New(ErrCodeInvalidProviderConfig, "ambiguous provider")))
	suite.False(IsFatalBoot(New(ErrCodeWalletNotLoaded, "wallet not loaded")))
	suite.False(IsFatalBoot(errors.New("standard error")))
}

func (suite *ErrorTestSuite) TestIsError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLedgerQueryFailed, "query failed", cause)
	suite.True(Is(err, cause))
}
