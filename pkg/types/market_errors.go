// Package types 定义市场客户端的错误分类
//
// 所有对外暴露的失败都落在以下几类之一：
// - ValidationError：输入违反约束（提交任何交易之前同步返回）
// - NotFoundError：地址上没有合约，或字节码指纹不匹配
// - IOError：普通的远程读取失败
// - TransactionTimeoutError / TransactionFailedError：交易确认阶段的失败
// - ErrNoTransactions：批量等待时输入为空
// - DecodeError：元数据解码失败（由 Store 在本地吞掉并视为空数据）
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNoTransactions 批量等待的交易列表为空
	ErrNoTransactions = errors.New("no transactions to wait for")

	// ErrSchemaMisconfigured 约束 schema 配置错误（例如字段缺少 type）
	ErrSchemaMisconfigured = errors.New("schema misconfigured")

	// ErrUnknownField 写入了字段 schema 中不存在的字段
	ErrUnknownField = errors.New("unknown field")

	// ErrReadOnlyField 写入了只读字段
	ErrReadOnlyField = errors.New("read-only field")

	// ErrAliasUnclaimed 别名未被认领（解析为零地址）
	ErrAliasUnclaimed = errors.New("alias unclaimed")
)

// ValidationError 约束校验失败
type ValidationError struct {
	Prefix  string // 元素类别前缀，如 "Product"、"Transport"
	Field   string // 违反约束的字段
	Rule    string // 违反的规则：presence/exists/type/numericality/length/inclusion/addrOfContract
	Message string // 人类可读的描述（不含前缀）
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	if e.Prefix != "" {
		return e.Prefix + " " + e.Message
	}
	return e.Message
}

// IsValidationError 检查错误是否为校验错误
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NotFoundError 地址上没有部署合约，或部署的字节码与预期种类不符
type NotFoundError struct {
	Address common.Address
	Kind    ContractKind // 期望的合约种类（可能为空）
	Reason  string
}

// Error 实现 error 接口
func (e *NotFoundError) Error() string {
	if e.Kind != KindNone {
		return fmt.Sprintf("contract %s not found at %s: %s", e.Kind, e.Address.Hex(), e.Reason)
	}
	return fmt.Sprintf("contract not found at %s: %s", e.Address.Hex(), e.Reason)
}

// IsNotFound 检查错误是否为 NotFound
func IsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// IOError 普通远程读写失败
type IOError struct {
	Op  string
	Err error
}

// Error 实现 error 接口
func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *IOError) Unwrap() error { return e.Err }

// IsIOError 检查错误是否为 IOError
func IsIOError(err error) (*IOError, bool) {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return ioe, true
	}
	return nil, false
}

// TransactionTimeoutError 确认轮询超过了截止时间
type TransactionTimeoutError struct {
	TxHash  common.Hash
	Elapsed time.Duration
}

// Error 实现 error 接口
func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not found after %s", e.TxHash.Hex(), e.Elapsed.Round(time.Millisecond))
}

// IsTransactionTimeout 检查错误是否为确认超时
func IsTransactionTimeout(err error) (*TransactionTimeoutError, bool) {
	var te *TransactionTimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// TransactionFailedError 回执表明交易执行失败
type TransactionFailedError struct {
	TxHash  common.Hash
	Receipt *ethtypes.Receipt
}

// Error 实现 error 接口
func (e *TransactionFailedError) Error() string {
	if e.Receipt != nil {
		return fmt.Sprintf("transaction %s failed in block %v (gas used %d)", e.TxHash.Hex(), e.Receipt.BlockNumber, e.Receipt.GasUsed)
	}
	return fmt.Sprintf("transaction %s failed", e.TxHash.Hex())
}

// IsTransactionFailed 检查错误是否为交易失败
func IsTransactionFailed(err error) (*TransactionFailedError, bool) {
	var fe *TransactionFailedError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// DecodeError 元数据解码失败
type DecodeError struct {
	Err error
}

// Error 实现 error 接口
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode metadata: %v", e.Err)
}

// Unwrap 返回底层错误
func (e *DecodeError) Unwrap() error { return e.Err }

// 错误分类码，CLI 与 HTTP 输出共用
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeTxTimeout      = "TX_TIMEOUT"
	CodeTxFailed       = "TX_FAILED"
	CodeIO             = "IO_ERROR"
	CodeNoTransactions = "NO_TRANSACTIONS"
	CodeInternal       = "INTERNAL"
)

// ErrorCode 返回错误的分类码
func ErrorCode(err error) string {
	if _, ok := IsValidationError(err); ok {
		return CodeValidation
	}
	if _, ok := IsNotFound(err); ok || errors.Is(err, ErrAliasUnclaimed) {
		return CodeNotFound
	}
	if _, ok := IsTransactionTimeout(err); ok {
		return CodeTxTimeout
	}
	if _, ok := IsTransactionFailed(err); ok {
		return CodeTxFailed
	}
	if _, ok := IsIOError(err); ok {
		return CodeIO
	}
	if errors.Is(err, ErrNoTransactions) {
		return CodeNoTransactions
	}
	return CodeInternal
}
