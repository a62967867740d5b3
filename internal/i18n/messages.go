package i18n

type entry struct {
	en string
	de string
}

var messages = map[string]entry{
	"app.title":       {"Kompello Console", "Kompello Konsole"},
	"app.loading":     {"Checking your session…", "Sitzung wird geprüft…"},
	"app.unavailable": {"The Kompello API is currently unavailable.", "Die Kompello-API ist derzeit nicht erreichbar."},
	"app.forbidden":   {"Kompello refused the request. Your session may have ended.", "Kompello hat die Anfrage abgelehnt. Ihre Sitzung ist möglicherweise abgelaufen."},
	"app.not_found":   {"The requested record does not exist.", "Der angeforderte Datensatz existiert nicht."},

	"nav.companies":  {"Companies", "Firmen"},
	"nav.home":       {"Overview", "Übersicht"},
	"nav.customers":  {"Customers", "Kunden"},
	"nav.items":      {"Items", "Artikel"},
	"nav.units":      {"Units", "Einheiten"},
	"nav.currencies": {"Currencies", "Währungen"},
	"nav.settings":   {"Settings", "Einstellungen"},
	"nav.account":    {"Account", "Konto"},
	"nav.logout":     {"Sign out", "Abmelden"},

	"auth.login.title":    {"Sign in", "Anmelden"},
	"auth.login.username": {"Email", "E-Mail"},
	"auth.login.password": {"Password", "Passwort"},
	"auth.login.submit":   {"Sign in", "Anmelden"},
	"auth.login.failed":   {"Sign in failed. Check your email and password.", "Anmeldung fehlgeschlagen. Bitte E-Mail und Passwort prüfen."},
	"auth.logout.done":    {"You have been signed out.", "Sie wurden abgemeldet."},

	"validation.required":      {"This field is required.", "Dieses Feld ist erforderlich."},
	"validation.email":         {"Enter a valid email address.", "Bitte eine gültige E-Mail-Adresse eingeben."},
	"validation.max":           {"This value is too long.", "Dieser Wert ist zu lang."},
	"validation.min":           {"This value is too short.", "Dieser Wert ist zu kurz."},
	"validation.oneof":         {"Choose one of the offered values.", "Bitte einen der angebotenen Werte wählen."},
	"validation.number":        {"Enter a number.", "Bitte eine Zahl eingeben."},
	"validation.boolean":       {"Choose yes or no.", "Bitte ja oder nein wählen."},
	"validation.unknown":       {"This field has an unsupported type.", "Dieses Feld hat einen nicht unterstützten Typ."},
	"validation.invalid":       {"The submission could not be processed.", "Die Eingabe konnte nicht verarbeitet werden."},
	"validation.datetime":      {"Enter a date as YYYY-MM-DD.", "Bitte ein Datum im Format JJJJ-MM-TT eingeben."},
	"validation.required_with": {"This field is required for an address.", "Dieses Feld ist für eine Adresse erforderlich."},
	"validation.uuid":          {"Choose one of the offered values.", "Bitte einen der angebotenen Werte wählen."},
	"validation.price":         {"Enter an amount with at most two decimals.", "Bitte einen Betrag mit höchstens zwei Nachkommastellen eingeben."},
	"validation.price_range":   {"The maximum price must not be below the price.", "Der Höchstpreis darf den Preis nicht unterschreiten."},
	"validation.fieldkey":      {"Use letters, digits, hyphens and underscores only.", "Nur Buchstaben, Ziffern, Binde- und Unterstriche verwenden."},
	"validation.eqfield":       {"The passwords do not match.", "Die Passwörter stimmen nicht überein."},

	"common.save":     {"Save", "Speichern"},
	"common.create":   {"Create", "Anlegen"},
	"common.back":     {"Back", "Zurück"},
	"common.yes":      {"Yes", "Ja"},
	"common.no":       {"No", "Nein"},
	"common.name":     {"Name", "Name"},
	"common.email":    {"Email", "E-Mail"},
	"common.phone":    {"Phone", "Telefon"},
	"common.active":   {"Active", "Aktiv"},
	"common.inactive": {"Inactive", "Inaktiv"},
	"common.all":      {"All", "Alle"},
	"common.empty":    {"Nothing here yet.", "Noch keine Einträge."},
	"common.edit":     {"Edit", "Bearbeiten"},
	"common.delete":   {"Delete", "Löschen"},

	"companies.title":          {"Your companies", "Ihre Firmen"},
	"home.customers":           {"%d customers", "%d Kunden"},
	"home.items":               {"%d items", "%d Artikel"},
	"home.units":               {"%d units", "%d Einheiten"},
	"home.currencies":          {"%d currencies", "%d Währungen"},
	"customers.number":         {"Customer number", "Kundennummer"},
	"customers.vat":            {"VAT ID", "USt-IdNr."},
	"customers.notes":          {"Notes", "Notizen"},
	"customers.new":            {"New customer", "Neuer Kunde"},
	"customers.edit":           {"Edit customer", "Kunde bearbeiten"},
	"customers.created":        {"Customer created.", "Kunde angelegt."},
	"customers.saved":          {"Customer saved.", "Kunde gespeichert."},
	"customers.title":          {"Title", "Anrede"},
	"customers.firstname":      {"First name", "Vorname"},
	"customers.lastname":       {"Last name", "Nachname"},
	"customers.birthdate":      {"Date of birth", "Geburtsdatum"},
	"customers.mobile_phone":   {"Mobile phone", "Mobiltelefon"},
	"customers.landline_phone": {"Landline", "Festnetz"},
	"customers.address":        {"Address", "Adresse"},
	"customers.street":         {"Street", "Straße"},
	"customers.postal_code":    {"Postal code", "Postleitzahl"},
	"customers.city":           {"City", "Ort"},
	"customers.state":          {"State", "Bundesland"},
	"customers.country":        {"Country", "Land"},
	"items.price":              {"Price", "Preis"},
	"items.custom":             {"Custom fields", "Benutzerdefinierte Felder"},
	"items.saved":              {"Custom fields saved.", "Benutzerdefinierte Felder gespeichert."},
	"items.new":                {"New item", "Neuer Artikel"},
	"items.edit":               {"Edit item", "Artikel bearbeiten"},
	"items.created":            {"Item created.", "Artikel angelegt."},
	"items.updated":            {"Item saved.", "Artikel gespeichert."},
	"items.description":        {"Description", "Beschreibung"},
	"items.currency":           {"Currency", "Währung"},
	"items.unit":               {"Unit", "Einheit"},
	"items.price_max":          {"Maximum price", "Höchstpreis"},
	"units.short_name":         {"Short name", "Kurzname"},
	"units.long_name":          {"Long name", "Langname"},
	"units.created":            {"Unit created.", "Einheit angelegt."},
	"units.edit":               {"Edit unit", "Einheit bearbeiten"},
	"units.saved":              {"Unit saved.", "Einheit gespeichert."},
	"currencies.symbol":        {"Symbol", "Symbol"},
	"currencies.created":       {"Currency created.", "Währung angelegt."},
	"currencies.edit":          {"Edit currency", "Währung bearbeiten"},
	"currencies.saved":         {"Currency saved.", "Währung gespeichert."},
	"settings.members":         {"Members", "Mitglieder"},
	"settings.fields":          {"Custom field definitions", "Benutzerdefinierte Felder"},
	"settings.data_type":       {"Data type", "Datentyp"},
	"settings.visible":         {"Shown in UI", "In Oberfläche sichtbar"},
	"settings.company":         {"Company", "Firma"},
	"settings.saved":           {"Company saved.", "Firma gespeichert."},

	"fields.new":           {"New custom field", "Neues benutzerdefiniertes Feld"},
	"fields.edit":          {"Edit custom field", "Benutzerdefiniertes Feld bearbeiten"},
	"fields.key":           {"Key", "Schlüssel"},
	"fields.model_type":    {"Used for", "Verwendet für"},
	"fields.track_history": {"Track history", "Verlauf speichern"},
	"fields.archived":      {"Archived", "Archiviert"},
	"fields.delete_hint":   {"Fields that still hold values cannot be deleted. Archive them instead.", "Felder mit gespeicherten Werten können nicht gelöscht werden. Bitte stattdessen archivieren."},
	"fields.created":       {"Custom field created.", "Benutzerdefiniertes Feld angelegt."},
	"fields.saved":         {"Custom field saved.", "Benutzerdefiniertes Feld gespeichert."},
	"fields.deleted":       {"Custom field deleted.", "Benutzerdefiniertes Feld gelöscht."},
	"fields.in_use":        {"The field still holds values and was not deleted.", "Das Feld enthält noch Werte und wurde nicht gelöscht."},

	"account.title":            {"Your account", "Ihr Konto"},
	"account.theme":            {"Theme", "Farbschema"},
	"account.locale":           {"Language", "Sprache"},
	"account.profile":          {"Profile", "Profil"},
	"account.first_name":       {"First name", "Vorname"},
	"account.last_name":        {"Last name", "Nachname"},
	"account.password":         {"Password", "Passwort"},
	"account.new_password":     {"New password", "Neues Passwort"},
	"account.confirm_password": {"Repeat new password", "Neues Passwort wiederholen"},
	"account.saved":            {"Profile saved.", "Profil gespeichert."},
	"account.password_changed": {"Password changed.", "Passwort geändert."},
	"theme.light":              {"Light", "Hell"},
	"theme.dark":               {"Dark", "Dunkel"},
	"theme.system":             {"System", "System"},
	"preferences.saved":        {"Preferences saved.", "Einstellungen gespeichert."},
}
