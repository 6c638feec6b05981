package shared

// Print permissions.
const (
	PermPrintDesign    = "print.design"
	PermPrintReceipt   = "print.receipt"
	PermPrintTemplates = "print.templates"
)

// PrintScopes lists all permissions related to printing.
func PrintScopes() []string {
	return []string{
		PermPrintDesign,
		PermPrintReceipt,
		PermPrintTemplates,
	}
}
