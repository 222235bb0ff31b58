package provider

// ExportColumns is the raw AWS line-item projection used by exports. The
// order is the CSV column layout.
var ExportColumns = []string{
	"cost_entry_id", "cost_entry_bill_id",
	"cost_entry_product_id", "cost_entry_pricing_id",
	"cost_entry_reservation_id", "tags",
	"invoice_id", "line_item_type", "usage_account_id",
	"usage_start", "usage_end", "product_code",
	"usage_type", "operation", "availability_zone",
	"usage_amount", "normalization_factor",
	"normalized_usage_amount", "currency_code",
	"unblended_rate", "unblended_cost", "blended_rate",
	"blended_cost", "tax_type",
}

var awsReportTypes = reportTypes{
	"costs": func() *Map {
		m := awsBase("costs")
		m.aggregateKey = "li.unblended_cost"
		m.unitsKey = "li.currency_code"
		return m
	},
	"instance-types": func() *Map {
		m := awsBase("instance-types")
		m.aggregateKey = "li.usage_amount"
		m.unitsKey = "li.unit"
		m.countColumn = "li.resource_count"
		m.filters = []string{"li.instance_type IS NOT NULL"}
		m.dimensions = append(m.dimensions, dimension{name: "instance_type", column: "li.instance_type"})
		return m
	},
	"storage": func() *Map {
		m := awsBase("storage")
		m.aggregateKey = "li.usage_amount"
		m.unitsKey = "li.unit"
		m.filters = []string{"li.product_family ILIKE '%Storage%'"}
		return m
	},
}

func awsBase(reportType string) *Map {
	return &Map{
		provider:    AWS,
		reportType:  reportType,
		table:       "aws_cost_line_items",
		tableAlias:  "li",
		joins:       []string{"LEFT JOIN aws_account_aliases aa ON aa.id = li.account_alias_id"},
		dateColumn:  "li.usage_start",
		aliasColumn: "aa.account_alias",
		dimensions: []dimension{
			{name: "service", column: "li.product_code"},
			{name: "account", column: "li.usage_account_id"},
			{name: "region", column: "li.region"},
			{name: "avail_zone", column: "li.availability_zone"},
		},
		exportColumns: ExportColumns,
	}
}
