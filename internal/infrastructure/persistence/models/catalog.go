package models

import (
	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ChargeTemplateModel is the persistence model for the ChargeTemplate aggregate root.
type ChargeTemplateModel struct {
	AggregateModel
	Name          string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_charge_templates_name"`
	Description   string          `gorm:"type:varchar(500)"`
	DefaultAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Active        bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ChargeTemplateModel) TableName() string {
	return "charge_templates"
}

// ToDomain converts the persistence model to a domain ChargeTemplate entity.
func (m *ChargeTemplateModel) ToDomain() *catalog.ChargeTemplate {
	tmpl := &catalog.ChargeTemplate{
		Name:          m.Name,
		Description:   m.Description,
		DefaultAmount: m.DefaultAmount,
		Active:        m.Active,
	}
	m.PopulateAggregateRoot(&tmpl.BaseAggregateRoot)
	return tmpl
}

// FromDomain populates the persistence model from a domain ChargeTemplate entity.
func (m *ChargeTemplateModel) FromDomain(tmpl *catalog.ChargeTemplate) {
	m.FromDomainAggregateRoot(tmpl.BaseAggregateRoot)
	m.Name = tmpl.Name
	m.Description = tmpl.Description
	m.DefaultAmount = tmpl.DefaultAmount
	m.Active = tmpl.Active
}

// ChargeTemplateModelFromDomain creates a new persistence model from a domain ChargeTemplate.
func ChargeTemplateModelFromDomain(tmpl *catalog.ChargeTemplate) *ChargeTemplateModel {
	m := &ChargeTemplateModel{}
	m.FromDomain(tmpl)
	return m
}
