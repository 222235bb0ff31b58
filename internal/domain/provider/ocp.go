package provider

var ocpReportTypes = reportTypes{
	"cpu": func() *Map {
		m := ocpBase("cpu")
		m.aggregateKey = "ou.pod_usage_cpu_core_hours"
		m.unitsKey = "'Core-Hours'"
		m.extras = []Extra{
			{Name: "request", Column: "ou.pod_request_cpu_core_hours"},
			{Name: "limit", Column: "ou.pod_limit_cpu_core_hours"},
		}
		return m
	},
	"memory": func() *Map {
		m := ocpBase("memory")
		m.aggregateKey = "ou.pod_usage_memory_gigabyte_hours"
		m.unitsKey = "'GB-Hours'"
		m.extras = []Extra{
			{Name: "request", Column: "ou.pod_request_memory_gigabyte_hours"},
			{Name: "limit", Column: "ou.pod_limit_memory_gigabyte_hours"},
		}
		return m
	},
}

// OpenShift usage has no account dimension and no raw export path.
func ocpBase(reportType string) *Map {
	return &Map{
		provider:   OCP,
		reportType: reportType,
		table:      "ocp_usage_line_items",
		tableAlias: "ou",
		dateColumn: "ou.usage_start",
		dimensions: []dimension{
			{name: "cluster", column: "ou.cluster_id"},
			{name: "project", column: "ou.namespace"},
			{name: "node", column: "ou.node"},
		},
	}
}
