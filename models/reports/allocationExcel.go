package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmdatafocus/allocation_backend/models"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSettings   = "Settings"
	SheetProducts   = "Products"
	SheetCustomers  = "Customers"
	SheetOrders     = "Orders"
	SheetAllocation = "Allocation"
	SheetViolations = "Violations"

	XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	settingTotalStock = "TotalStock"
)

var (
	productHeadings    = []string{"ID", "Name", "Price"}
	customerHeadings   = []string{"ID", "Name", "CreditRemaining", "ClosingBalance"}
	orderHeadings      = []string{"ID", "CustomerId", "ProductId", "RequestedQty", "AllocatedQty", "Suggestion", "PricePerUnit"}
	allocationHeadings = []string{"OrderId", "Customer", "Product", "Requested", "Suggestion", "Allocated", "PricePerUnit", "Total", "CreditRemaining"}
	violationHeadings  = []string{"OrderId", "Kind", "Message"}
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

type cells []interface{}

func (c cells) GetCellValues() []interface{} { return c }

// ImportSnapshot reads a workbook with Settings, Products, Customers and Orders sheets.
// The first row of every sheet is a heading. Totals are derived, never read.
func ImportSnapshot(r io.Reader) (*models.AllocationState, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	state := &models.AllocationState{}
	if state.TotalStock, err = readTotalStock(f); err != nil {
		return nil, err
	}

	rows, err := dataRows(f, SheetProducts)
	if err != nil {
		return nil, err
	}
	for idx, row := range rows {
		price, err := parseAmount(cell(row, 2))
		if err != nil {
			return nil, fmt.Errorf("could not parse price in %s row %d: %w", SheetProducts, idx+2, err)
		}
		state.Products = append(state.Products, &models.Product{
			ID:    cell(row, 0),
			Name:  cell(row, 1),
			Price: price,
		})
	}

	rows, err = dataRows(f, SheetCustomers)
	if err != nil {
		return nil, err
	}
	for idx, row := range rows {
		credit, err := parseAmount(cell(row, 2))
		if err != nil {
			return nil, fmt.Errorf("could not parse credit in %s row %d: %w", SheetCustomers, idx+2, err)
		}
		closing, err := parseAmount(cell(row, 3))
		if err != nil {
			return nil, fmt.Errorf("could not parse closing balance in %s row %d: %w", SheetCustomers, idx+2, err)
		}
		state.Customers = append(state.Customers, &models.Customer{
			ID:              cell(row, 0),
			Name:            cell(row, 1),
			CreditRemaining: credit,
			ClosingBalance:  closing,
		})
	}

	rows, err = dataRows(f, SheetOrders)
	if err != nil {
		return nil, err
	}
	for idx, row := range rows {
		order, err := parseOrderRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetOrders, idx+2, err)
		}
		state.Orders = append(state.Orders, order)
	}

	return models.PrepareSnapshot(state)
}

func parseOrderRow(row []string) (*models.Order, error) {
	var qty [3]int
	for i, col := range []int{3, 4, 5} {
		n, err := parseQuantity(cell(row, col))
		if err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", orderHeadings[col], err)
		}
		qty[i] = n
	}
	price, err := parseAmount(cell(row, 6))
	if err != nil {
		return nil, fmt.Errorf("could not parse price: %w", err)
	}
	return &models.Order{
		ID:           cell(row, 0),
		CustomerId:   cell(row, 1),
		ProductId:    cell(row, 2),
		RequestedQty: qty[0],
		AllocatedQty: qty[1],
		Suggestion:   qty[2],
		PricePerUnit: price,
	}, nil
}

func readTotalStock(f *excelize.File) (int, error) {
	rows, err := dataRows(f, SheetSettings)
	if err != nil {
		return 0, err
	}
	for idx, row := range rows {
		if !strings.EqualFold(cell(row, 0), settingTotalStock) {
			continue
		}
		stock, err := parseQuantity(cell(row, 1))
		if err != nil {
			return 0, fmt.Errorf("could not parse %s in %s row %d: %w", settingTotalStock, SheetSettings, idx+2, err)
		}
		return stock, nil
	}
	return 0, fmt.Errorf("%s sheet has no %s row", SheetSettings, settingTotalStock)
}

// dataRows returns the non-blank rows below the heading.
func dataRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseAmount reads a money cell; blank means zero.
func parseAmount(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return utils.ParseDecimal(v)
}

// parseQuantity truncates fractional quantities; blank means zero.
func parseQuantity(v string) (int, error) {
	d, err := parseAmount(v)
	if err != nil {
		return 0, err
	}
	return utils.CoerceQuantity(d), nil
}

// SnapshotWorkbook renders state in the layout ImportSnapshot reads back.
func SnapshotWorkbook(state *models.AllocationState) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSettings); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SheetSettings, []ExcelExporter{cells{settingTotalStock, state.TotalStock}}, "Key", "Value"); err != nil {
		return nil, err
	}

	products := make([]ExcelExporter, 0, len(state.Products))
	for _, p := range state.Products {
		products = append(products, cells{p.ID, p.Name, p.Price.String()})
	}
	customers := make([]ExcelExporter, 0, len(state.Customers))
	for _, c := range state.Customers {
		customers = append(customers, cells{c.ID, c.Name, c.CreditRemaining.String(), c.ClosingBalance.String()})
	}
	orders := make([]ExcelExporter, 0, len(state.Orders))
	for _, o := range state.Orders {
		orders = append(orders, cells{o.ID, o.CustomerId, o.ProductId, o.RequestedQty, o.AllocatedQty, o.Suggestion, o.PricePerUnit.String()})
	}

	for _, s := range []struct {
		name     string
		rows     []ExcelExporter
		headings []string
	}{
		{SheetProducts, products, productHeadings},
		{SheetCustomers, customers, customerHeadings},
		{SheetOrders, orders, orderHeadings},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, s.name, s.rows, s.headings...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type allocationRow struct {
	order    *models.Order
	customer *models.Customer
	product  *models.Product
}

func (r allocationRow) GetCellValues() []interface{} {
	customerName, credit := r.order.CustomerId, interface{}("")
	if r.customer != nil {
		customerName = r.customer.Name
		credit = r.customer.CreditRemaining.InexactFloat64()
	}
	productName := r.order.ProductId
	if r.product != nil {
		productName = r.product.Name
	}
	return []interface{}{
		r.order.ID,
		customerName,
		productName,
		r.order.RequestedQty,
		r.order.Suggestion,
		r.order.AllocatedQty,
		r.order.PricePerUnit.InexactFloat64(),
		r.order.Total.InexactFloat64(),
		credit,
	}
}

// AllocationWorkbook renders the allocation table the operator reviews, followed by stock
// totals, and the violations of the last engine call on a second sheet.
func AllocationWorkbook(state *models.AllocationState, violations []models.Violation) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetAllocation); err != nil {
		return nil, err
	}

	rows := make([]ExcelExporter, 0, len(state.Orders)+3)
	for _, o := range state.Orders {
		rows = append(rows, allocationRow{
			order:    o,
			customer: state.FindCustomer(o.CustomerId),
			product:  state.FindProduct(o.ProductId),
		})
	}
	rows = append(rows,
		cells{},
		cells{"Total", "", "", "", "", state.AllocatedUnits(), "", state.AllocatedValue().InexactFloat64()},
		cells{"TotalStock", "", "", "", "", state.TotalStock},
		cells{"RemainingStock", "", "", "", "", state.RemainingStock()},
	)
	if err := writeSheet(f, SheetAllocation, rows, allocationHeadings...); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetAllocation, "B", "C", 24); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetViolations); err != nil {
		return nil, err
	}
	vrows := make([]ExcelExporter, 0, len(violations))
	for _, v := range violations {
		vrows = append(vrows, cells{v.OrderId, string(v.Kind), v.Message})
	}
	if err := writeSheet(f, SheetViolations, vrows, violationHeadings...); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheetName string, data []ExcelExporter, headings ...string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range headings {
		name, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, name, h); err != nil {
			return err
		}
	}
	if len(headings) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headings), 1)
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return err
		}
	}

	rowNo := 2
	for _, d := range data {
		for i, value := range d.GetCellValues() {
			name, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, name, value); err != nil {
				return err
			}
		}
		rowNo++
	}
	return nil
}
