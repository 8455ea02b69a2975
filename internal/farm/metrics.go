package farm

import "expvar"

var (
	metricDeclarationsTotal       = expvar.NewInt("farm_declarations_total")
	metricReconnectScheduledTotal = expvar.NewInt("farm_reconnect_scheduled_total")
	metricWatchdogConnectTotal    = expvar.NewInt("farm_watchdog_connect_total")
	metricTickPassTotal           = expvar.NewInt("farm_tick_pass_total")
	metricGoalCompletedTotal      = expvar.NewInt("farm_goal_completed_total")
)
