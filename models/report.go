package models

import "time"

// ProjectSummary identifies the project a financial view describes
type ProjectSummary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Budget   int64         `json:"budget"`
	Currency Currency      `json:"currency"`
	Status   ProjectStatus `json:"status,omitempty"`
	Client   *Ref          `json:"client,omitempty"`
}

// LedgerLine is a transaction as shown inside a financial report. Amount and
// Currency are the values the transaction was recorded with.
type LedgerLine struct {
	ID            string              `json:"id"`
	Amount        float64             `json:"amount"`
	Currency      Currency            `json:"currency"`
	Date          time.Time           `json:"date"`
	Description   string              `json:"description,omitempty"`
	Category      TransactionCategory `json:"category"`
	Status        TransactionStatus   `json:"status"`
	PaymentMethod PaymentMethod       `json:"paymentMethod"`
	Reference     string              `json:"reference,omitempty"`
	Client        *Ref                `json:"client,omitempty"`
	Employee      *Ref                `json:"employee,omitempty"`
	AddedBy       string              `json:"addedBy,omitempty"`
}

// ProjectFinancialFigures are expressed in the project's own currency
type ProjectFinancialFigures struct {
	Budget                     int64 `json:"budget"`
	TotalEmployeesCompensation int64 `json:"totalEmployeesCompensation"`
	EmployeesCount             int   `json:"employeesCount"`
	MoneyCollected             int64 `json:"moneyCollected"`
	TotalExpenses              int64 `json:"totalExpenses"`
	PaidToEmployees            int64 `json:"paidToEmployees"`
	OtherExpenses              int64 `json:"otherExpenses"`
	ClientBalanceDue           int64 `json:"clientBalanceDue"`
	EmployeeBalanceDue         int64 `json:"employeeBalanceDue"`
	GrossProfit                int64 `json:"grossProfit"`
	NetProfitToDate            int64 `json:"netProfitToDate"`
}

type ProjectTransactions struct {
	ClientTransactions   []LedgerLine `json:"clientTransactions"`
	EmployeeTransactions []LedgerLine `json:"employeeTransactions"`
}

type ProjectFinancials struct {
	Project      ProjectSummary          `json:"project"`
	Financials   ProjectFinancialFigures `json:"financials"`
	Transactions ProjectTransactions     `json:"transactions"`
}

// EmployeePayments is one active member's position in a project's payroll
type EmployeePayments struct {
	Employee     Ref          `json:"employee"`
	Position     string       `json:"position,omitempty"`
	Compensation int64        `json:"compensation"`
	Currency     Currency     `json:"currency"`
	Paid         int64        `json:"paid"`
	Remaining    int64        `json:"remaining"`
	PaymentCount int          `json:"paymentCount"`
	Payments     []LedgerLine `json:"payments"`
}

type EmployeeBreakdownSummary struct {
	EmployeesCount    int   `json:"employeesCount"`
	TotalCompensation int64 `json:"totalCompensation"`
	TotalPaid         int64 `json:"totalPaid"`
	TotalRemaining    int64 `json:"totalRemaining"`
}

type EmployeeBreakdown struct {
	ProjectID   string                   `json:"projectId"`
	ProjectName string                   `json:"projectName"`
	Currency    Currency                 `json:"currency"`
	Breakdown   []EmployeePayments       `json:"breakdown"`
	Summary     EmployeeBreakdownSummary `json:"summary"`
}

type ClientPaymentSummary struct {
	TotalPayments  int   `json:"totalPayments"`
	TotalCollected int64 `json:"totalCollected"`
	BalanceDue     int64 `json:"balanceDue"`
	PercentagePaid int64 `json:"percentagePaid"`
}

type ClientPaymentHistory struct {
	Project  ProjectSummary       `json:"project"`
	Payments []LedgerLine         `json:"payments"`
	Summary  ClientPaymentSummary `json:"summary"`
}

// Period describes the date window of a report. Nil bounds are open.
type Period struct {
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
	Lifetime bool       `json:"lifetime,omitempty"`
}

type CompanySummary struct {
	TotalIncome   int64 `json:"totalIncome"`
	TotalExpenses int64 `json:"totalExpenses"`
	NetProfit     int64 `json:"netProfit"`
	ProfitMargin  int64 `json:"profitMargin"`
}

type CompanyProjects struct {
	ActiveCount int   `json:"activeCount"`
	TotalBudget int64 `json:"totalBudget"`
	Uncollected int64 `json:"uncollected"`
}

type TransactionCounts struct {
	Income  int `json:"income"`
	Expense int `json:"expense"`
}

type CompanyFinancials struct {
	Period            Period            `json:"period"`
	Currency          Currency          `json:"currency"`
	Summary           CompanySummary    `json:"summary"`
	Projects          CompanyProjects   `json:"projects"`
	TransactionCounts TransactionCounts `json:"transactionCounts"`
}

type OverviewFinancials struct {
	TotalIncome   int64 `json:"totalIncome"`
	TotalSalaries int64 `json:"totalSalaries"`
	OtherExpenses int64 `json:"otherExpenses"`
	NetProfit     int64 `json:"netProfit"`
	ProfitMargin  int64 `json:"profitMargin"`
}

type GrowthPoint struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Value int64 `json:"value"`
}

// QuarterIncome is one quarter of the income-by-department pivot
type QuarterIncome struct {
	Quarter     string           `json:"quarter"`
	Departments map[string]int64 `json:"departments"`
}

type OverviewCharts struct {
	GrowthTrend        []GrowthPoint   `json:"growthTrend"`
	IncomeByDepartment []QuarterIncome `json:"incomeByDepartment"`
}

type RecentProject struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Client     string        `json:"client,omitempty"`
	Department string        `json:"department,omitempty"`
	Status     ProjectStatus `json:"status"`
	StartDate  *time.Time    `json:"startDate,omitempty"`
	EndDate    *time.Time    `json:"endDate,omitempty"`
	Budget     int64         `json:"budget"`
}

type Overview struct {
	Period         Period             `json:"period"`
	Currency       Currency           `json:"currency"`
	Financials     OverviewFinancials `json:"financials"`
	Charts         OverviewCharts     `json:"charts"`
	RecentProjects []RecentProject    `json:"recentProjects"`
}

type StatsCounts struct {
	TotalProjects   int   `json:"totalProjects"`
	ActiveProjects  int   `json:"activeProjects"`
	ActiveEmployees int   `json:"activeEmployees"`
	AvgCompletion   int64 `json:"avgCompletion"`
}

type DepartmentProgress struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Spent   int64  `json:"spent"`
	Budget  int64  `json:"budget"`
	Percent int64  `json:"percent"`
}

type Stats struct {
	Currency    Currency             `json:"currency"`
	Counts      StatsCounts          `json:"counts"`
	Departments []DepartmentProgress `json:"departments"`
}
