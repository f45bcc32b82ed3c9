package schema

import "sync"

// FlatsProfileName is the name of the built-in rental flats profile.
const FlatsProfileName = "flats"

var flatsProfile = sync.OnceValues(func() (*Profile, error) {
	return NewProfile(FlatsSpec())
})

// Flats returns the built-in profile for the flats listing export.
func Flats() (*Profile, error) { return flatsProfile() }

func yesNo() map[string]any {
	return map[string]any{
		"yes": 1, "y": 1,
		"no": 0, "n": 0,
	}
}

func yesNoBool() map[string]any {
	return map[string]any{
		"yes": 1, "y": 1, "true": 1, "1": 1,
		"no": 0, "n": 0, "false": 0, "0": 0,
	}
}

// FlatsSpec returns a fresh copy of the flats profile spec. Callers may
// modify it freely, e.g. to write it out as a starting point for a custom
// profile.
func FlatsSpec() ProfileSpec {
	spec := ProfileSpec{
		Name:      FlatsProfileName,
		Table:     "flats",
		Marker:    "Flat Master Name",
		Key:       "name",
		SlugField: "slug",
		Aliases: []Alias{
			{"Flat Master Name", "name"},
			{"Agreement Charges (Record Currency)", "agreement_charges_record_charges"},
			{"Agreement Charges", "agreement_charges"},
			{"Available Date for Next Booking", "available_date_for_next_booking"},
			{"Balcony Type", "balcony_type"},
			{"Block Name", "block_name"},
			{"Booking2Contarct days", "booking_2_contarct_days"},
			{"Built-up Area (Sq. Ft.)", "built_up_area"},
			{"Caretaker Master", "care_taker_master"},
			{"Catalogue Price last updated date", "catalogue_price_last_updates_date"},
			{"CIR Tracker", "cir_tracker"},
			{"Cluster Name", "cluster_name"},
			{"Created By", "created_by"},
			{"Created Time", "created_time"},
			{"Currency", "currency"},
			{"Current Move-In Date", "current_move_in_date"},
			{"Current Check-Out Date", "current_check_out_date"},
			{"Current Tenant ID", "current_tenant_id"},
			{"Electricity Meter Number", "electricity_meter_number"},
			{"Email Opt Out", "email_opt_out"},
			{"Exchange Rate", "exchange_rate"},
			{"Flat Available to Rent Status", "flat_available_rent_status"},
			{"Flat Booking Hold Status", "flat_booking_hold_status"},
			{"Flat Category", "flat_category"},
			{"Flat Facing", "flat_facing"},
			{"Flat Iframe Embed for Virtual Tour", "videos"},
			{"Flat Mailing City", "flat_mailing_city"},
			{"Flat Mailing Country", "flat_mailing_country"},
			{"Flat Mailing State", "flat_mailing_state"},
			{"Flat Mailing Street", "flat_mailing_street"},
			{"Flat Mailing Zip", "flat_mailing_zip"},
			{"Flat Master Owner", "flat_master_owner"},
			{"Flat Next Booking Status", "flat_next_booking_status"},
			{"Flat Occupancy Status", "flat_occupancy_status"},
			{"Flat Rent Next Start Date", "flat_rent_next_start_date"},
			{"Flat Security Deposit (Record Currency)", "flat_security_deposit_record_currency"},
			{"Flat Security Deposit", "flat_security_deposit"},
			{"Flat Type", "flat_type"},
			{"Flat Video", "flat_video"},
			{"Flat_Number", "flat_number"},
			{"Flats Unique ID", "flat_unique_id"},
			{"Floor Number", "floor_number"},
			{"Garbage charges (Record Currency)", "garbage_amount_record_currency"},
			{"Garbage charges", "garbage_amount"},
			{"Inside the Flat", "inside_the_flat_description"},
			{"Inventory Trackers", "track_inventory"},
			{"Landlord Mailing City", "landlord_mailing_city"},
			{"Landlord Mailing Country", "landlord_mailing_country"},
			{"Landlord Mailing State", "landlord_mailing_state"},
			{"Landlord Mailing Street", "landlord_mailing_street"},
			{"Landlord Mailing Zip", "landlord_mailing_zip"},
			{"Landlord Name", "landlord_name"},
			{"Last Activity Time", "last_activity_time"},
			{"Website_Flat_URL", "website_flat_url"},
			{"Validatortag", "validatortag"},
			{"Update Status", "update_status"},
			{"Unsubscribed Time", "unsubsribed_time"},
			{"Terms & Conditions", "terms_conditions"},
			{"Tag", "product_tags"},
			{"Super Built-up Area (Sq. Ft.)", "super_built_area"},
			{"Sample Contract Link", "sample_contract_link"},
			{"Reserved Car Parking Available", "reserved_car_parking_available"},
			{"Renewal rate", "renewal_rate"},
			{"Record Id", "record_id"},
			{"Property Unique ID", "property_unique_id"},
			{"Property Onboarded Date", "added_date"},
			{"Property Master", "property_master"},
			{"Prepaid Move-Out Charge", "move_out_charges"},
			{"Parking Queue", "parking_queue"},
			{"No Of Bathrooms", "no_of_bathrooms"},
			{"Next Move-In Date", "next_move_in_date"},
			{"Next Booking ID", "next_booking_id"},
			{"Monthly Rent", "selling_price"},
			{"Monthly Rent (Record Currency)", "monthly_rent_record_currency"},
			{"Long Description", "description"},
			{"Max Occupants", "max_occupancy"},
			{"Meta Title", "meta_title"},
			{"Modified By", "modified_by"},
			{"Monthly Maintenance", "maintenance_amount"},
			{"Meta Description", "meta_description"},
			{"Modified Time", "modified_date"},
			{"Wifi ID", "wifi_id"},
			{"Wifi Password", "wifi_password"},
		},
		// The export repeats a few headers; the second occurrence carries the
		// value the table wants.
		Overrides: []OccurrenceOverride{
			{Header: "Flats Unique ID", Occurrence: 1, Field: "flat_unique_id"},
			{Header: "Last Activity Time", Occurrence: 1, Field: "last_activity_time"},
			{Header: "Monthly Rent (Record Currency)", Occurrence: 0, Field: "monthly_rent_record_currency"},
		},
		Fields: map[string]FieldSpec{
			"product_tags": {Kind: KindJSON},

			"flat_facing": {Kind: KindEnum, Enum: map[string]any{
				"north": 1, "east": 2, "west": 3, "south": 4,
				"north east": 5, "north west": 6, "south east": 7, "south west": 8,
			}},
			"flat_booking_hold_status": {Kind: KindEnum, Enum: map[string]any{
				"free": 1, "on hold": 2, "hold": 2,
			}},
			"flat_available_rent_status": {Kind: KindEnum, Enum: yesNoBool()},
			"track_inventory":            {Kind: KindEnum, Enum: yesNoBool()},
			// Unknown parking spellings are stored as NO while an unknown
			// opt-out spelling stays null. Keep the two apart.
			// Both parking fields are stored as 1/0 codes. One legacy loader
			// wrote the strings 'YES'/'NO' instead; columns holding those
			// need a profile file with string codes.
			"reserved_car_parking_available": {Kind: KindEnum, Enum: yesNo(), Default: 0},
			"parking_queue":                  {Kind: KindEnum, Enum: yesNo(), Default: 0},
			"email_opt_out":                  {Kind: KindEnum, Enum: yesNoBool()},
		},
		Derived: []DerivedField{
			{Field: "slug", Source: "name", Func: DeriveSlug},
			{Field: "flat_available_status", Source: "flat_available_rent_status", Func: DeriveCopy},
			{Field: "booking_lock_status", Func: DeriveConstant, Value: "available"},
		},
		Compare: []CompareCheck{
			{Field: "flat_available_rent_status", Issue: "RENT_STATUS"},
			{Field: "flat_booking_hold_status", Issue: "BOOKING_HOLD_STATUS"},
			{Field: "flat_occupancy_status", Issue: "OCCUPANCY_STATUS"},
			{Field: "flat_next_booking_status", Issue: "NEXT_BOOKING_STATUS"},
			{Field: "available_date_for_next_booking", Issue: "AVAILABLE_DATE", Date: true},
		},
	}

	for _, f := range []string{
		"agreement_charges", "selling_price", "maintenance_amount",
		"garbage_amount", "flat_security_deposit", "move_out_charges",
		"agreement_charges_record_charges", "flat_security_deposit_record_currency",
		"garbage_amount_record_currency", "renewal_rate", "exchange_rate",
		"monthly_rent_record_currency",
	} {
		spec.Fields[f] = FieldSpec{Kind: KindCurrency}
	}
	for _, f := range []string{
		"added_date", "modified_date", "current_move_in_date",
		"current_check_out_date", "catalogue_price_last_updates_date",
		"available_date_for_next_booking", "created_time", "flat_rent_next_start_date",
		"next_move_in_date", "unsubsribed_time", "last_activity_time",
	} {
		spec.Fields[f] = FieldSpec{Kind: KindDate}
	}
	for _, f := range []string{"floor_number", "no_of_bathrooms", "booking_2_contarct_days"} {
		spec.Fields[f] = FieldSpec{Kind: KindInteger}
	}
	return spec
}
