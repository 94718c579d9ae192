package catalog

import "github.com/litescript/ls-segment-switch/internal/theme"

// Modules shared across segments.
const (
	ModuleDashboard    ModuleCode = "dashboard"
	ModuleFinances     ModuleCode = "finances"
	ModuleGoals        ModuleCode = "goals"
	ModuleCustomers    ModuleCode = "customers"
	ModuleInventory    ModuleCode = "inventory"
	ModuleSales        ModuleCode = "sales"
	ModuleReports      ModuleCode = "reports"
	ModuleSettings     ModuleCode = "settings"
	ModuleHarvest      ModuleCode = "harvest"
	ModuleFields       ModuleCode = "fields"
	ModuleOrders       ModuleCode = "orders"
	ModuleProducts     ModuleCode = "products"
	ModuleShipping     ModuleCode = "shipping"
	ModulePatients     ModuleCode = "patients"
	ModuleAppointments ModuleCode = "appointments"
	ModuleStudents     ModuleCode = "students"
	ModuleClasses      ModuleCode = "classes"
	ModuleProjects     ModuleCode = "projects"
	ModuleTimesheets   ModuleCode = "timesheets"
	ModuleMenu         ModuleCode = "menu"
	ModuleTables       ModuleCode = "tables"
)

var builtin = []Definition{
	{
		ID:          "generic",
		DisplayName: "General business",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#7C3AED",
			SecondaryColor:   "#0EA5E9",
			Typography:       theme.TypographySans,
			IconStyle:        theme.IconOutlined,
			LayoutPriorities: []string{"dashboard", "finances", "goals"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleFinances, ModuleGoals, ModuleCustomers, ModuleReports, ModuleSettings},
	},
	{
		ID:          "agro",
		DisplayName: "Agribusiness",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#16A34A",
			SecondaryColor:   "#CA8A04",
			Typography:       theme.TypographySerif,
			IconStyle:        theme.IconFilled,
			LayoutPriorities: []string{"harvest", "fields", "finances", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleHarvest, ModuleFields, ModuleInventory, ModuleFinances, ModuleGoals, ModuleReports, ModuleSettings},
	},
	{
		ID:          "ecommerce",
		DisplayName: "E-commerce",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#EA580C",
			SecondaryColor:   "#2563EB",
			Typography:       theme.TypographySans,
			IconStyle:        theme.IconDuotone,
			LayoutPriorities: []string{"orders", "sales", "products", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleOrders, ModuleProducts, ModuleSales, ModuleShipping, ModuleInventory, ModuleCustomers, ModuleFinances, ModuleReports, ModuleSettings},
	},
	{
		ID:          "health",
		DisplayName: "Health care",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#0D9488",
			SecondaryColor:   "#E11D48",
			Typography:       theme.TypographySans,
			IconStyle:        theme.IconOutlined,
			LayoutPriorities: []string{"appointments", "patients", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleAppointments, ModulePatients, ModuleFinances, ModuleReports, ModuleSettings},
	},
	{
		ID:          "education",
		DisplayName: "Education",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#4F46E5",
			SecondaryColor:   "#D97706",
			Typography:       theme.TypographyHandwritten,
			IconStyle:        theme.IconDuotone,
			LayoutPriorities: []string{"classes", "students", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleClasses, ModuleStudents, ModuleGoals, ModuleFinances, ModuleReports, ModuleSettings},
	},
	{
		ID:          "services",
		DisplayName: "Professional services",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#334155",
			SecondaryColor:   "#059669",
			Typography:       theme.TypographySerif,
			IconStyle:        theme.IconOutlined,
			LayoutPriorities: []string{"projects", "timesheets", "customers", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleProjects, ModuleTimesheets, ModuleCustomers, ModuleFinances, ModuleGoals, ModuleReports, ModuleSettings},
	},
	{
		ID:          "food",
		DisplayName: "Food service",
		DefaultTheme: theme.Preference{
			PrimaryColor:     "#DC2626",
			SecondaryColor:   "#65A30D",
			Typography:       theme.TypographyHandwritten,
			IconStyle:        theme.IconFilled,
			LayoutPriorities: []string{"orders", "tables", "menu", "dashboard"},
		},
		Modules: []ModuleCode{ModuleDashboard, ModuleOrders, ModuleTables, ModuleMenu, ModuleInventory, ModuleFinances, ModuleReports, ModuleSettings},
	},
}
