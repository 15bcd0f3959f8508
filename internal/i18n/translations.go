package i18n

var translations = map[Language]map[string]string{
	French: {
		"dashboard":         "Tableau de Bord",
		"alerts":            "Alertes",
		"settings":          "Paramètres",
		"temperature":       "Température",
		"ph":                "pH",
		"oxygen":            "Oxygène Dissous",
		"salinity":          "Salinité",
		"turbidity":         "Turbidité",
		"optimal":           "Optimal",
		"warning":           "Attention",
		"critical":          "Critique",
		"lastUpdated":       "Dernière mise à jour",
		"details":           "Détails",
		"acknowledge":       "Acquitter",
		"export":            "Exporter",
		"filter":            "Filtrer",
		"today":             "Aujourd'hui",
		"week":              "7 jours",
		"month":             "30 jours",
		"filterAlerts":      "Filtrer les Alertes",
		"search":            "Rechercher...",
		"severity":          "Gravité",
		"status":            "Statut",
		"all":               "Toutes",
		"active":            "Actives",
		"acknowledged":      "Acquittées",
		"noAlerts":          "Aucune alerte",
		"noAlertsMatch":     "Aucune alerte ne correspond aux critères sélectionnés",
		"noActiveAlerts":    "Aucune alerte active",
		"recentAlerts":      "Alertes Récentes",
		"activeAlerts":      "Alertes Actives",
		"recentlyAcked":     "Récemment Acquittées",
		"value":             "Valeur",
		"threshold":         "Seuil",
		"totalPonds":        "Total Bassins",
		"globalHealth":      "Santé Globale",
		"optimalPonds":      "bassins optimaux",
		"systemStatus":      "Statut Système",
		"online":            "En Ligne",
		"lastSync":          "Dernière sync",
		"criticals":         "critiques",
		"warnings":          "avertissements",
		"total":             "total",
		"fishType":          "Espèce",
		"capacity":          "Capacité",
		"readings":          "Mesures",
		"history":           "Historique",
		"language":          "Langue",
		"chooseLanguage":    "Choisir la langue",
		"notifications":     "Paramètres de Notification",
		"channels":          "Canaux",
		"severityFilter":    "Gravités",
		"pondNotFound":      "Bassin introuvable",
		"alertNotFound":     "Alerte introuvable",
		"appTitle":          "AquaVeille",
		"logs":              "Journal",
		"ammonia":           "Ammoniac",
		"nitrites":          "Nitrites",
		"above":             "trop élevé",
		"below":             "trop bas",
		"criticalQualifier": "critique",
		"recovered":         "revenu à la normale",
		"escalated":         "Non acquittée",
		"pond":              "Bassin",
		"back":              "Retour",
		"reload":            "Recharger",
		"delay":             "Délai",
		"type":              "Type",
		"pesticides":        "Pesticides",
		"heavyMetals":       "Métaux lourds",
		"chemicalThreats":   "Menaces chimiques",
		"biologicalThreats": "Menaces biologiques",
		"threatDetected":    "Menace biologique détectée",
		"notDetected":       "Non détecté",
		"risk":              "risque",
		"risk.low":          "faible",
		"risk.medium":       "moyen",
		"risk.high":         "élevé",
		"organism":          "Organisme",
		"addPond":           "Ajouter un bassin",
		"pondName":          "Nom du bassin",
		"pondNameAr":        "Nom du bassin (arabe)",
		"location":          "Emplacement",
		"pondID":            "Identifiant",
		"create":            "Créer",
		"invalidPond":       "Bassin invalide",
		"pondExists":        "Ce bassin existe déjà",
	},
	Arabic: {
		"dashboard":         "لوحة التحكم",
		"alerts":            "التنبيهات",
		"settings":          "الإعدادات",
		"temperature":       "درجة الحرارة",
		"ph":                "الحموضة",
		"oxygen":            "الأكسجين المذاب",
		"salinity":          "الملوحة",
		"turbidity":         "العكارة",
		"optimal":           "مثالي",
		"warning":           "تحذير",
		"critical":          "حرج",
		"lastUpdated":       "آخر تحديث",
		"details":           "التفاصيل",
		"acknowledge":       "تأكيد",
		"export":            "تصدير",
		"filter":            "تصفية",
		"today":             "اليوم",
		"week":              "7 أيام",
		"month":             "30 يوم",
		"filterAlerts":      "تصفية التنبيهات",
		"search":            "البحث...",
		"severity":          "مستوى الخطورة",
		"status":            "الحالة",
		"all":               "الكل",
		"active":            "نشطة",
		"acknowledged":      "مؤكدة",
		"noAlerts":          "لا توجد تنبيهات",
		"noAlertsMatch":     "لا توجد تنبيهات تطابق المعايير المحددة",
		"noActiveAlerts":    "لا توجد تنبيهات نشطة",
		"recentAlerts":      "التنبيهات الأخيرة",
		"activeAlerts":      "التنبيهات النشطة",
		"recentlyAcked":     "مؤكدة مؤخراً",
		"value":             "القيمة",
		"threshold":         "الحد",
		"totalPonds":        "إجمالي الأحواض",
		"globalHealth":      "الصحة العامة",
		"optimalPonds":      "أحواض مثالية",
		"systemStatus":      "حالة النظام",
		"online":            "متصل",
		"lastSync":          "آخر مزامنة",
		"criticals":         "حرجة",
		"warnings":          "تحذيرات",
		"total":             "إجمالي",
		"fishType":          "النوع",
		"capacity":          "السعة",
		"readings":          "القراءات",
		"history":           "السجل",
		"language":          "اللغة",
		"chooseLanguage":    "اختر اللغة",
		"notifications":     "إعدادات الإشعارات",
		"channels":          "القنوات",
		"severityFilter":    "مستويات الخطورة",
		"pondNotFound":      "الحوض غير موجود",
		"alertNotFound":     "التنبيه غير موجود",
		"appTitle":          "أكوا فيي",
		"logs":              "السجلات",
		"ammonia":           "الأمونيا",
		"nitrites":          "النتريت",
		"above":             "مرتفع",
		"below":             "منخفض",
		"criticalQualifier": "حرج",
		"recovered":         "عاد إلى الوضع الطبيعي",
		"escalated":         "غير مؤكدة",
		"pond":              "الحوض",
		"back":              "رجوع",
		"reload":            "إعادة التحميل",
		"delay":             "المهلة",
		"type":              "النوع",
		"pesticides":        "المبيدات",
		"heavyMetals":       "المعادن الثقيلة",
		"chemicalThreats":   "التهديدات الكيميائية",
		"biologicalThreats": "التهديدات البيولوجية",
		"threatDetected":    "تم رصد تهديد بيولوجي",
		"notDetected":       "غير مرصود",
		"risk":              "خطر",
		"risk.low":          "منخفض",
		"risk.medium":       "متوسط",
		"risk.high":         "مرتفع",
		"organism":          "الكائن",
		"addPond":           "إضافة حوض",
		"pondName":          "اسم الحوض",
		"pondNameAr":        "اسم الحوض (بالعربية)",
		"location":          "الموقع",
		"pondID":            "المعرّف",
		"create":            "إنشاء",
		"invalidPond":       "حوض غير صالح",
		"pondExists":        "هذا الحوض موجود بالفعل",
	},
}

// T looks up a UI string. Missing keys fall back to the primary language and
// finally to the key itself.
func T(key string, l Language) string {
	if s, ok := translations[l][key]; ok {
		return s
	}
	if s, ok := translations[Primary][key]; ok {
		return s
	}
	return key
}
