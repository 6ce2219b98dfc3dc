package store

import (
	"github.com/weisyn/marketclient/internal/core/validator"
	"github.com/weisyn/marketclient/pkg/types"
)

// ==================== 校验 schema ====================

var (
	aliasSchema = validator.MustCompile(map[string]validator.Constraint{
		"alias": {Type: validator.TypeAlias, Presence: true},
	})

	metaSchema = validator.MustCompile(map[string]validator.Constraint{
		"name":           {Type: validator.TypeString, Presence: true},
		"info":           {Type: validator.TypeString},
		"products":       {Type: validator.TypeArray, Exists: true},
		"submarketAddrs": {Type: validator.TypeArray},
		"transports":     {Type: validator.TypeArray, Presence: true, Length: &validator.Length{Minimum: 1}},
	})

	submarketSchema = validator.MustCompile(map[string]validator.Constraint{
		"addr": {Type: validator.TypeAddress, Presence: true, AddrOfContract: types.KindSubmarket},
	})

	productSchema = validator.MustCompile(map[string]validator.Constraint{
		"id": {Type: validator.TypeString, Presence: true, Numericality: &validator.Numericality{
			OnlyInteger:          true,
			GreaterThanOrEqualTo: validator.Num(0),
		}},
		"name": {Type: validator.TypeString, Presence: true},
		"price": {Type: validator.TypeString, Presence: true, Numericality: &validator.Numericality{
			GreaterThan: validator.Num(0),
		}},
		"info":     {Type: validator.TypeString},
		"imageUrl": {Type: validator.TypeURL},
	})

	transportSchema = validator.MustCompile(map[string]validator.Constraint{
		"id": {Type: validator.TypeString, Presence: true, Numericality: &validator.Numericality{
			OnlyInteger:          true,
			GreaterThanOrEqualTo: validator.Num(0),
		}},
		"type": {Type: validator.TypeString, Presence: true},
		"price": {Type: validator.TypeString, Presence: true, Numericality: &validator.Numericality{
			GreaterThanOrEqualTo: validator.Num(0),
		}},
	})

	// fieldsSchema 店铺标量字段；set 时只校验出现的字段
	fieldsSchema = validator.MustCompile(map[string]validator.Constraint{
		"isOpen":   {Type: validator.TypeBool},
		"currency": {Type: validator.TypeString, Length: &validator.Length{Minimum: 1, Maximum: 32}},
		"disputeSeconds": {Type: validator.TypeNumber, Numericality: &validator.Numericality{
			OnlyInteger:          true,
			GreaterThanOrEqualTo: validator.Num(0),
		}},
		"minTotal": {Type: validator.TypeString, Numericality: &validator.Numericality{
			GreaterThanOrEqualTo: validator.Num(0),
		}},
		"affiliateFeeCentiperun": {Type: validator.TypeNumber, Numericality: &validator.Numericality{
			OnlyInteger:          true,
			GreaterThanOrEqualTo: validator.Num(0),
			LessThanOrEqualTo:    validator.Num(100),
		}},
	})
)
