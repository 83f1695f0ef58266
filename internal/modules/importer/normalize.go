package importer

import (
	"strings"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/classifier"
	"github.com/aristath/wallet/internal/utils"
)

// Statement column names
const (
	colFlow        = "Entrada/Saída"
	colDate        = "Data"
	colMovement    = "Movimentação"
	colProduct     = "Produto"
	colInstitution = "Instituição"
	colQuantity    = "Quantidade"
	colUnitPrice   = "Preço unitário"
	colOperation   = "Valor da Operação"

	colTradeDate = "Data do Negócio"
	colTradeType = "Tipo de Movimentação"
	colMarket    = "Mercado"
	colTerm      = "Prazo/Vencimento"
	colCode      = "Código de Negociação"
	colPrice     = "Preço"
	colValue     = "Valor"

	colTime        = "Hora"
	colSettlement  = "Liquidação"
	colDescription = "Descrição"
	colUSDValue    = "Valor (U$)"
	colUSDBalance  = "Saldo da conta (U$)"

	colGenericDate     = "Date"
	colGenericAsset    = "Asset"
	colGenericMovement = "Movimentation"
	colGenericQuantity = "Quantity"
	colGenericPrice    = "Price"
	colGenericTotal    = "Total"
)

// RequiredColumns lists the columns each source must provide
var RequiredColumns = map[domain.Source][]string{
	domain.SourceB3Movimentation: {colFlow, colDate, colMovement, colProduct, colInstitution, colQuantity, colUnitPrice, colOperation},
	domain.SourceB3Negotiation:   {colTradeDate, colTradeType, colMarket, colTerm, colInstitution, colCode, colQuantity, colPrice, colValue},
	domain.SourceCashExtract:     {colDate, colTime, colSettlement, colDescription, colUSDValue, colUSDBalance},
	domain.SourceGenericExtract:  {colGenericDate, colGenericAsset, colGenericMovement, colGenericQuantity, colGenericPrice, colGenericTotal},
}

type normalizer func(t *Table, row []string) domain.Transaction

var normalizers = map[domain.Source]normalizer{
	domain.SourceB3Movimentation: normalizeMovimentation,
	domain.SourceB3Negotiation:   normalizeNegotiation,
	domain.SourceCashExtract:     normalizeCashExtract,
	domain.SourceGenericExtract:  normalizeGeneric,
}

func normalizeMovimentation(t *Table, row []string) domain.Transaction {
	product := t.Cell(row, colProduct)
	return domain.Transaction{
		Date:         utils.NormalizeDate(t.Cell(row, colDate), utils.BrazilianDateLayout),
		Flow:         parseFlow(t.Cell(row, colFlow)),
		MovementType: t.Cell(row, colMovement),
		Asset:        product,
		Ticker:       classifier.ExtractB3Ticker(product),
		Institution:  t.Cell(row, colInstitution),
		Quantity:     number(t.Cell(row, colQuantity)),
		UnitPrice:    number(t.Cell(row, colUnitPrice)),
		TotalValue:   *number(t.Cell(row, colOperation)),
	}
}

func normalizeNegotiation(t *Table, row []string) domain.Transaction {
	code := t.Cell(row, colCode)
	return domain.Transaction{
		Date:           utils.NormalizeDate(t.Cell(row, colTradeDate), utils.BrazilianDateLayout),
		MovementType:   t.Cell(row, colTradeType),
		Market:         t.Cell(row, colMarket),
		SettlementTerm: t.Cell(row, colTerm),
		Institution:    t.Cell(row, colInstitution),
		Asset:          code,
		Ticker:         classifier.ExtractB3Ticker(code),
		Quantity:       number(t.Cell(row, colQuantity)),
		UnitPrice:      number(t.Cell(row, colPrice)),
		TotalValue:     *number(t.Cell(row, colValue)),
	}
}

func normalizeCashExtract(t *Table, row []string) domain.Transaction {
	description := t.Cell(row, colDescription)
	parsed := classifier.ParseCashDescription(description)
	return domain.Transaction{
		Date:           utils.NormalizeDate(t.Cell(row, colDate), utils.BrazilianDateLayout),
		TimeOfDay:      t.Cell(row, colTime),
		SettlementDate: utils.NormalizeDate(t.Cell(row, colSettlement), utils.BrazilianDateLayout),
		Description:    description,
		Flow:           parsed.Flow,
		MovementType:   parsed.Movement,
		Asset:          parsed.Ticker,
		Ticker:         parsed.Ticker,
		Quantity:       parsed.Quantity,
		UnitPrice:      parsed.Price,
		TotalValue:     *number(t.Cell(row, colUSDValue)),
		Balance:        *number(t.Cell(row, colUSDBalance)),
	}
}

func normalizeGeneric(t *Table, row []string) domain.Transaction {
	asset := t.Cell(row, colGenericAsset)
	return domain.Transaction{
		Date:         utils.NormalizeDate(t.Cell(row, colGenericDate), utils.ISODateLayout),
		Asset:        asset,
		Ticker:       asset,
		MovementType: t.Cell(row, colGenericMovement),
		Quantity:     number(t.Cell(row, colGenericQuantity)),
		UnitPrice:    number(t.Cell(row, colGenericPrice)),
		TotalValue:   *number(t.Cell(row, colGenericTotal)),
	}
}

func parseFlow(value string) domain.FlowDirection {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "credito", "crédito":
		return domain.FlowCredit
	case "debito", "débito":
		return domain.FlowDebit
	}
	return domain.FlowNone
}

// number coerces a cell, defaulting unparseable values to 0.
func number(value string) *float64 {
	f, _ := utils.ParseNumber(value)
	return &f
}
