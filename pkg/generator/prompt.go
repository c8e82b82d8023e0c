package generator

import (
	"fmt"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// domains are the business settings questions are set in when the
// caller doesn't pin one.
var domains = []string{
	"e-commerce",
	"HR/employees",
	"social media",
	"healthcare",
	"finance",
	"logistics",
}

// systemPrompt pins the model to machine-parseable output.
const systemPrompt = `You are a SQL question generator for PostgreSQL 14.
Output ONLY valid JSON matching the exact schema provided.
No explanations, no markdown formatting outside the JSON, no extra text.
Ensure all SQL is valid PostgreSQL 14 syntax.`

// difficultyGuide describes what each tier should exercise.
var difficultyGuide = map[api.Difficulty]string{
	api.DifficultyEasy:   "Single table, basic SELECT/WHERE/ORDER BY, 1-2 conditions, no JOINs",
	api.DifficultyMedium: "1-2 JOINs, GROUP BY + HAVING, basic subqueries, 2-3 tables",
	api.DifficultyHard:   "Multiple JOINs, window functions (ROW_NUMBER, RANK, SUM OVER), CTEs, complex aggregations, 3-5 tables",
}

// fewShots holds one complete worked example per tier. Showing the
// model a full payload at the target difficulty is what keeps the
// output shape stable across generations.
var fewShots = map[api.Difficulty]string{
	api.DifficultyEasy: `{
  "title": "High-Value Orders",
  "description": "Find all orders with a total amount greater than 500, sorted by amount descending.",
  "tables": [{
    "name": "orders",
    "columns": ["order_id SERIAL PRIMARY KEY", "customer_id INT", "amount DECIMAL(10,2)", "created_at DATE"],
    "sample_data": [[1, 101, 250.00, "2024-01-15"], [2, 102, 750.50, "2024-01-16"], [3, 101, 125.00, "2024-01-17"], [4, 103, 890.00, "2024-01-18"], [5, 102, 50.00, "2024-01-19"]]
  }],
  "setup_sql": "CREATE TABLE orders (order_id SERIAL PRIMARY KEY, customer_id INT, amount DECIMAL(10,2), created_at DATE); INSERT INTO orders (customer_id, amount, created_at) VALUES (101, 250.00, '2024-01-15'), (102, 750.50, '2024-01-16'), (101, 125.00, '2024-01-17'), (103, 890.00, '2024-01-18'), (102, 50.00, '2024-01-19');",
  "expected_query": "SELECT * FROM orders WHERE amount > 500 ORDER BY amount DESC;",
  "expected_columns": ["order_id", "customer_id", "amount", "created_at"],
  "hints": ["Filter rows based on a numeric condition", "Use WHERE with a comparison operator"]
}`,

	api.DifficultyMedium: `{
  "title": "Customer Order Totals",
  "description": "Find each customer's name and their total order amount. Only include customers who have spent more than 1000 in total. Sort by total spent descending.",
  "tables": [
    {"name": "customers", "columns": ["customer_id SERIAL PRIMARY KEY", "name VARCHAR(100)", "email VARCHAR(255)"], "sample_data": [[1, "Alice Johnson", "alice@email.com"], [2, "Bob Smith", "bob@email.com"], [3, "Carol White", "carol@email.com"]]},
    {"name": "orders", "columns": ["order_id SERIAL PRIMARY KEY", "customer_id INT REFERENCES customers(customer_id)", "amount DECIMAL(10,2)", "order_date DATE"], "sample_data": [[1, 1, 500.00, "2024-01-10"], [2, 1, 750.00, "2024-01-15"], [3, 2, 200.00, "2024-01-12"], [4, 3, 1500.00, "2024-01-20"]]}
  ],
  "setup_sql": "CREATE TABLE customers (customer_id SERIAL PRIMARY KEY, name VARCHAR(100), email VARCHAR(255)); CREATE TABLE orders (order_id SERIAL PRIMARY KEY, customer_id INT, amount DECIMAL(10,2), order_date DATE); INSERT INTO customers (name, email) VALUES ('Alice Johnson', 'alice@email.com'), ('Bob Smith', 'bob@email.com'), ('Carol White', 'carol@email.com'); INSERT INTO orders (customer_id, amount, order_date) VALUES (1, 500.00, '2024-01-10'), (1, 750.00, '2024-01-15'), (2, 200.00, '2024-01-12'), (3, 1500.00, '2024-01-20');",
  "expected_query": "SELECT c.name, SUM(o.amount) AS total_spent FROM customers c JOIN orders o ON c.customer_id = o.customer_id GROUP BY c.customer_id, c.name HAVING SUM(o.amount) > 1000 ORDER BY total_spent DESC;",
  "expected_columns": ["name", "total_spent"],
  "hints": ["You need to combine data from two tables", "Use GROUP BY with an aggregate function", "HAVING filters after aggregation"]
}`,

	api.DifficultyHard: `{
  "title": "Running Revenue by Month",
  "description": "Calculate each month's revenue and the cumulative running total of revenue. Show the month (as date), monthly revenue, and running total. Order by month ascending.",
  "tables": [
    {"name": "orders", "columns": ["order_id SERIAL PRIMARY KEY", "amount DECIMAL(10,2)", "created_at DATE"], "sample_data": [[1, 500.00, "2024-01-15"], [2, 750.00, "2024-01-20"], [3, 300.00, "2024-02-10"], [4, 900.00, "2024-02-25"], [5, 450.00, "2024-03-05"]]}
  ],
  "setup_sql": "CREATE TABLE orders (order_id SERIAL PRIMARY KEY, amount DECIMAL(10,2), created_at DATE); INSERT INTO orders (amount, created_at) VALUES (500.00, '2024-01-15'), (750.00, '2024-01-20'), (300.00, '2024-02-10'), (900.00, '2024-02-25'), (450.00, '2024-03-05');",
  "expected_query": "WITH monthly AS (SELECT DATE_TRUNC('month', created_at) AS month, SUM(amount) AS revenue FROM orders GROUP BY DATE_TRUNC('month', created_at)) SELECT month, revenue, SUM(revenue) OVER (ORDER BY month) AS running_total FROM monthly ORDER BY month;",
  "expected_columns": ["month", "revenue", "running_total"],
  "hints": ["Aggregate by month first", "Consider using a CTE or subquery", "Window functions can compute running totals with SUM() OVER()"]
}`,
}

const outputFormat = `{
  "title": "Short descriptive title (3-6 words)",
  "description": "2-3 sentence problem statement. State WHAT to find, not HOW. Be specific about output requirements.",
  "tables": [
    {
      "name": "table_name",
      "columns": ["col1 TYPE", "col2 TYPE"],
      "sample_data": [["val1", "val2"], ...]
    }
  ],
  "setup_sql": "CREATE TABLE ...; INSERT INTO ... VALUES ...;",
  "expected_query": "SELECT ...",
  "expected_columns": ["col1", "col2"],
  "hints": ["Hint 1 (vague)", "Hint 2 (more specific)", "Hint 3 (nearly gives it away)"]
}`

// buildPrompt assembles the generation prompt for a canned-domain
// question at the given difficulty.
func buildPrompt(difficulty api.Difficulty, domain string, maxRows int) string {
	return fmt.Sprintf(`Generate a SQL practice question.

DIFFICULTY: %s
DIFFICULTY REQUIREMENTS: %s

DOMAIN: %s

OUTPUT FORMAT (strict JSON, no markdown code blocks):
%s

CONSTRAINTS:
- Tables: 1-%d tables, max %d total rows across all tables
- Column names: Use snake_case (user_id, created_at, total_amount)
- Data: Use realistic values (real names, plausible dates, sensible amounts). NO placeholder text like "test", "example", "foo".
- expected_query: Must be deterministic. Always include ORDER BY if results could vary.
- PostgreSQL 14 syntax only. Use appropriate types (SERIAL, VARCHAR, DECIMAL, DATE, TIMESTAMP, BOOLEAN).
- Ensure all foreign key references are valid in the sample data.

EXAMPLE for %s difficulty:
%s

Generate a DIFFERENT question in the %s domain. Be creative with the scenario.`,
		difficulty, difficultyGuide[difficulty],
		domain,
		outputFormat,
		difficulty.MaxTables(), maxRows,
		difficulty, fewShots[difficulty],
		domain)
}

// buildCustomPrompt assembles the generation prompt for a learner-
// described topic. The topic replaces the canned domain; everything
// else matches the standard prompt so the output shape stays identical.
func buildCustomPrompt(userPrompt string, difficulty api.Difficulty, maxRows int) string {
	return fmt.Sprintf(`Generate a SQL practice question based on the learner's request below.

LEARNER REQUEST: %s

DIFFICULTY: %s
DIFFICULTY REQUIREMENTS: %s

OUTPUT FORMAT (strict JSON, no markdown code blocks):
%s

CONSTRAINTS:
- Tables: 1-%d tables, max %d total rows across all tables
- Column names: Use snake_case (user_id, created_at, total_amount)
- Data: Use realistic values (real names, plausible dates, sensible amounts). NO placeholder text like "test", "example", "foo".
- expected_query: Must be deterministic. Always include ORDER BY if results could vary.
- PostgreSQL 14 syntax only. Use appropriate types (SERIAL, VARCHAR, DECIMAL, DATE, TIMESTAMP, BOOLEAN).
- Ensure all foreign key references are valid in the sample data.
- Stay on the learner's topic, but keep the question self-contained.

EXAMPLE payload shape at %s difficulty:
%s`,
		userPrompt,
		difficulty, difficultyGuide[difficulty],
		outputFormat,
		difficulty.MaxTables(), maxRows,
		difficulty, fewShots[difficulty])
}
