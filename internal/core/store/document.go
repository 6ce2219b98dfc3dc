package store

import (
	"time"

	"github.com/weisyn/marketclient/internal/core/currency"
)

// Document 快照的展示形式（金额均为格式化后的字符串）
type Document struct {
	Address                string              `json:"address"`
	Alias                  string              `json:"alias,omitempty"`
	Owner                  string              `json:"owner"`
	IsOpen                 bool                `json:"is_open"`
	Currency               string              `json:"currency"`
	DisputeSeconds         uint64              `json:"dispute_seconds"`
	MinTotal               string              `json:"min_total"`
	AffiliateFeeCentiperun uint64              `json:"affiliate_fee_centiperun"`
	Name                   string              `json:"name"`
	Info                   string              `json:"info,omitempty"`
	Products               []ProductDocument   `json:"products"`
	Transports             []TransportDocument `json:"transports"`
	SubmarketAddrs         []string            `json:"submarket_addrs"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// ProductDocument 商品展示形式
type ProductDocument struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Info     string `json:"info,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// TransportDocument 配送方式展示形式
type TransportDocument struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	Price string `json:"price"`
	Label string `json:"label"`
}

// Document 转换为展示形式
func (v *View) Document(alias string) Document {
	doc := Document{
		Address:                v.Address.Hex(),
		Alias:                  alias,
		Owner:                  v.Owner.Hex(),
		IsOpen:                 v.IsOpen,
		Currency:               v.Currency,
		DisputeSeconds:         v.DisputeSeconds,
		MinTotal:               currency.Format(v.MinTotal.Amount, v.Currency),
		AffiliateFeeCentiperun: v.AffiliateFeeCentiperun,
		Name:                   v.Name,
		Info:                   v.Info,
		Products:               make([]ProductDocument, 0, len(v.Products)),
		Transports:             make([]TransportDocument, 0, len(v.Transports)),
		SubmarketAddrs:         make([]string, 0, len(v.SubmarketAddrs)),
		UpdatedAt:              v.UpdatedAt,
	}
	for _, p := range v.Products {
		doc.Products = append(doc.Products, ProductDocument{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price.String(),
			Info:     p.Info,
			ImageURL: p.ImageURL,
		})
	}
	for _, t := range v.Transports {
		doc.Transports = append(doc.Transports, TransportDocument{
			ID:    t.ID,
			Type:  t.Type,
			Price: t.Price.String(),
			Label: t.Label,
		})
	}
	for _, a := range v.SubmarketAddrs {
		doc.SubmarketAddrs = append(doc.SubmarketAddrs, a.Hex())
	}
	return doc
}
