package scanning

// billExtractionPrompt is the shared prompt used by all model backends for reading bills
const billExtractionPrompt = `Analyze this bill/receipt and extract the following information in JSON format:
{
  "bill_number": "extracted bill/invoice number",
  "bill_date": "YYYY-MM-DD format",
  "vendor_name": "merchant/vendor name",
  "transaction_category": "category like Travel, Food, Office Supplies, etc.",
  "purpose": "inferred purpose from bill type",
  "amount": numeric_amount_only,
  "currency": "INR or other currency",
  "product": "product/service category",
  "cluster_location": "location if mentioned",
  "confidence_score": confidence_percentage_as_number
}

Rules:
- Extract exact text as visible
- Use YYYY-MM-DD for dates
- Amount should be numeric only (no currency symbols)
- If information is unclear, use null
- Provide a confidence score (0-100) for the overall extraction
- Return only the JSON object`
