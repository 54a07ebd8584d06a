// Package warehouse owns the SQLite star schema: dim_customer, dim_product
// and fact_sales. A load is a full refresh. Foreign keys are declared but
// not enforced, and each table commits separately.
package warehouse
